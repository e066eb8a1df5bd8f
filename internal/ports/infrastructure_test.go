package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/refclust/internal/domain"
)

// mockMetricsCollector implements MetricsCollector.
type mockMetricsCollector struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
	latency  map[string]time.Duration
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		counters: make(map[string]float64),
		gauges:   make(map[string]float64),
		latency:  make(map[string]time.Duration),
	}
}

func (m *mockMetricsCollector) RecordLatency(operation string, d time.Duration, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency[operation] += d
}

func (m *mockMetricsCollector) RecordCounter(metric string, v float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metric] += v
}

func (m *mockMetricsCollector) RecordGauge(metric string, v float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[metric] = v
}

func (m *mockMetricsCollector) RecordHistogram(metric string, v float64, _ map[string]string) {
	m.RecordCounter(metric+"_observations", 1, nil)
}

// mockUnit implements Unit as a no-op.
type mockUnit struct {
	name string
}

func (u *mockUnit) Name() string { return u.name }

func (u *mockUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	return state, nil
}

func (u *mockUnit) Validate() error { return nil }

// mockRegistry implements UnitRegistry.
type mockRegistry struct {
	factories map[string]UnitFactory
}

func (r *mockRegistry) CreateUnit(unitType, id string, config map[string]any) (Unit, error) {
	f, ok := r.factories[unitType]
	if !ok {
		return nil, ErrUnknownUnitType
	}
	return f(id, config)
}

func (r *mockRegistry) RegisterUnitFactory(unitType string, factory UnitFactory) error {
	r.factories[unitType] = factory
	return nil
}

func (r *mockRegistry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for k := range r.factories {
		types = append(types, k)
	}
	return types
}

func TestMetricsCollector_Interface(t *testing.T) {
	var mc MetricsCollector = newMockMetricsCollector()

	mc.RecordLatency("unit_execute", 5*time.Millisecond, map[string]string{"unit": "clusters"})
	mc.RecordCounter("distance_rows", 10, nil)
	mc.RecordCounter("distance_rows", 5, nil)
	mc.RecordGauge("clusters", 3, nil)
	mc.RecordHistogram("cluster_size", 2, nil)

	m := mc.(*mockMetricsCollector)
	assert.Equal(t, 15.0, m.counters["distance_rows"])
	assert.Equal(t, 3.0, m.gauges["clusters"])
	assert.Equal(t, 5*time.Millisecond, m.latency["unit_execute"])
	assert.Equal(t, 1.0, m.counters["cluster_size_observations"])
}

func TestUnitRegistry_Interface(t *testing.T) {
	var reg UnitRegistry = &mockRegistry{factories: make(map[string]UnitFactory)}

	require.NoError(t, reg.RegisterUnitFactory("noop", func(id string, _ map[string]any) (Unit, error) {
		return &mockUnit{name: id}, nil
	}))
	assert.Equal(t, []string{"noop"}, reg.GetSupportedTypes())

	unit, err := reg.CreateUnit("noop", "first", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", unit.Name())

	_, err = unit.Execute(context.Background(), nilState())
	assert.NoError(t, err)

	_, err = reg.CreateUnit("missing", "x", nil)
	assert.ErrorIs(t, err, ErrUnknownUnitType)
}
