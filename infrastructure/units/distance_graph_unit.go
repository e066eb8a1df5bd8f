package units

import (
	"context"
	"fmt"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

var _ ports.Unit = (*DistanceGraphUnit)(nil)

// DistanceGraphUnit builds the similarity graph from the distance records
// in the state.
type DistanceGraphUnit struct {
	name    string
	config  DistanceGraphConfig
	metrics ports.MetricsCollector
}

// DistanceGraphConfig defines the configuration parameters for the
// DistanceGraphUnit.
type DistanceGraphConfig struct {
	// MinSamples fails the unit when the graph has fewer nodes. Zero
	// accepts an empty table.
	MinSamples int `yaml:"min_samples" json:"min_samples" validate:"min=0"`
}

// NewDistanceGraphUnit creates a new DistanceGraphUnit.
func NewDistanceGraphUnit(name string, config DistanceGraphConfig, metrics ports.MetricsCollector) (*DistanceGraphUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &DistanceGraphUnit{name: name, config: config, metrics: metrics}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *DistanceGraphUnit) Name() string { return u.name }

// Execute reads domain.KeyDistanceRecords and stores the graph under
// domain.KeySimilarityGraph.
func (u *DistanceGraphUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	records, err := domain.MustGet(state, domain.KeyDistanceRecords)
	if err != nil {
		return state, err
	}

	graph := domain.BuildSimilarityGraph(records)
	if graph.NodeCount() < u.config.MinSamples {
		return state, fmt.Errorf("distance table names %d samples, at least %d required",
			graph.NodeCount(), u.config.MinSamples)
	}

	if u.metrics != nil {
		labels := map[string]string{"unit": u.name}
		u.metrics.RecordGauge(ports.MetricSamples, float64(graph.NodeCount()), labels)
		u.metrics.RecordGauge("edges", float64(graph.EdgeCount()), labels)
	}

	return domain.With(state, domain.KeySimilarityGraph, graph), nil
}

// Validate checks if the unit is properly configured.
func (u *DistanceGraphUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DefaultDistanceGraphConfig returns a DistanceGraphConfig with sensible defaults.
func DefaultDistanceGraphConfig() DistanceGraphConfig {
	return DistanceGraphConfig{MinSamples: 0}
}

// CreateDistanceGraphUnit is a factory function that creates a
// DistanceGraphUnit from a configuration map, for use with the UnitRegistry.
func CreateDistanceGraphUnit(id string, config map[string]any) (*DistanceGraphUnit, error) {
	cfg := DefaultDistanceGraphConfig()
	n, ok, err := intParam(config, "min_samples")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.MinSamples = n
	}
	return NewDistanceGraphUnit(id, cfg, metricsFrom(config))
}
