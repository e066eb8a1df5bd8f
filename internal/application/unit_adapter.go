package application

import (
	"context"
	"time"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/logger"
	"github.com/ahrav/refclust/internal/ports"
)

// UnitAdapter wraps a ports.Unit so it can be placed in pipelines, layers
// and graphs. It logs each run and records its latency.
type UnitAdapter struct {
	unit    ports.Unit
	id      string
	log     *logger.Logger
	metrics ports.MetricsCollector
}

// AdapterOption configures a UnitAdapter.
type AdapterOption func(*UnitAdapter)

// WithAdapterLogger sets the logger used for run start and finish entries.
func WithAdapterLogger(l *logger.Logger) AdapterOption {
	return func(ua *UnitAdapter) {
		if l != nil {
			ua.log = l
		}
	}
}

// WithAdapterMetrics records the latency of every run in mc.
func WithAdapterMetrics(mc ports.MetricsCollector) AdapterOption {
	return func(ua *UnitAdapter) { ua.metrics = mc }
}

// NewUnitAdapter wraps unit under the graph identifier id.
func NewUnitAdapter(unit ports.Unit, id string, opts ...AdapterOption) *UnitAdapter {
	ua := &UnitAdapter{
		unit: unit,
		id:   id,
		log:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(ua)
	}
	return ua
}

// Execute runs the wrapped unit.
func (ua *UnitAdapter) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ua.log.Debug("unit started", "unit", ua.id)
	start := time.Now()

	out, err := ua.unit.Execute(ctx, state)
	elapsed := time.Since(start)

	if ua.metrics != nil {
		ua.metrics.RecordLatency(ports.MetricUnitExecution, elapsed, map[string]string{"unit": ua.id})
	}
	if err != nil {
		ua.log.Error("unit failed", "unit", ua.id, "duration", elapsed, "error", err)
		return state, err
	}
	ua.log.Info("unit finished", "unit", ua.id, "duration", elapsed)
	return out, nil
}

// ID returns the graph identifier of the adapter.
func (ua *UnitAdapter) ID() string { return ua.id }

// Unit returns the wrapped unit.
func (ua *UnitAdapter) Unit() ports.Unit { return ua.unit }
