package application

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/refclust/infrastructure/units"
	"github.com/ahrav/refclust/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.UnitRegistry = (*DefaultUnitRegistry)(nil)

// UnitDecorator wraps a freshly created unit, e.g. to trace its executions.
type UnitDecorator func(ports.Unit) ports.Unit

// DefaultUnitRegistry maps unit type names to factories. It injects the
// shared metrics collector into every factory config and applies the
// configured decorators to every unit it creates.
type DefaultUnitRegistry struct {
	factories  map[string]ports.UnitFactory
	metrics    ports.MetricsCollector
	decorators []UnitDecorator
	mu         sync.RWMutex
}

// RegistryOption configures a DefaultUnitRegistry.
type RegistryOption func(*DefaultUnitRegistry)

// WithMetricsCollector injects mc into units that record metrics.
func WithMetricsCollector(mc ports.MetricsCollector) RegistryOption {
	return func(r *DefaultUnitRegistry) { r.metrics = mc }
}

// WithUnitDecorator adds a decorator applied to every created unit.
// Decorators apply in registration order, so the last one is outermost.
func WithUnitDecorator(d UnitDecorator) RegistryOption {
	return func(r *DefaultUnitRegistry) {
		if d != nil {
			r.decorators = append(r.decorators, d)
		}
	}
}

// NewDefaultUnitRegistry creates a registry with every built-in unit type
// registered.
func NewDefaultUnitRegistry(opts ...RegistryOption) *DefaultUnitRegistry {
	registry := &DefaultUnitRegistry{
		factories: make(map[string]ports.UnitFactory),
	}
	for _, opt := range opts {
		opt(registry)
	}

	registry.registerBuiltinFactories()

	return registry
}

// factoryOf adapts a typed constructor to ports.UnitFactory without
// leaking typed nil pointers on failure.
func factoryOf[U ports.Unit](create func(string, map[string]any) (U, error)) ports.UnitFactory {
	return func(id string, config map[string]any) (ports.Unit, error) {
		unit, err := create(id, config)
		if err != nil {
			return nil, err
		}
		return unit, nil
	}
}

func (r *DefaultUnitRegistry) registerBuiltinFactories() {
	r.factories[UnitTypeMashDistances] = factoryOf(units.CreateMashDistancesUnit)
	r.factories[UnitTypeDistanceGraph] = factoryOf(units.CreateDistanceGraphUnit)
	r.factories[UnitTypeThresholdFilter] = factoryOf(units.CreateThresholdFilterUnit)
	r.factories[UnitTypeClusterExtract] = factoryOf(units.CreateClusterExtractUnit)
	r.factories[UnitTypeMockClusters] = factoryOf(units.CreateMockClustersUnit)
	r.factories[UnitTypeClustersYAML] = factoryOf(units.CreateClustersYAMLUnit)
	r.factories[UnitTypeReferenceSeekerResults] = factoryOf(units.CreateReferenceSeekerResultsUnit)
	r.factories[UnitTypeCandidateAggregate] = factoryOf(units.CreateCandidateAggregateUnit)
	r.factories[UnitTypeCandidateRank] = factoryOf(units.CreateCandidateRankUnit)
	r.factories[UnitTypeScoresCSV] = factoryOf(units.CreateScoresCSVUnit)
}

// CreateUnit builds a unit of unitType. The config map is copied before the
// metrics collector is injected, so callers may reuse it.
func (r *DefaultUnitRegistry) CreateUnit(
	unitType string,
	id string,
	config map[string]any,
) (ports.Unit, error) {
	r.mu.RLock()
	factory, exists := r.factories[unitType]
	metrics := r.metrics
	decorators := slices.Clone(r.decorators)
	r.mu.RUnlock()

	if !exists {
		if hint := r.closestType(unitType); hint != "" {
			return nil, fmt.Errorf("%w: %s (did you mean %q?)", ports.ErrUnknownUnitType, unitType, hint)
		}
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownUnitType, unitType)
	}

	if id == "" {
		return nil, fmt.Errorf("unit ID cannot be empty")
	}

	cfg := maps.Clone(config)
	if cfg == nil {
		cfg = make(map[string]any)
	}
	if metrics != nil {
		cfg[units.ConfigKeyMetrics] = metrics
	}

	unit, err := factory(id, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit %s of type %s: %w", id, unitType, err)
	}

	for _, decorate := range decorators {
		unit = decorate(unit)
	}

	return unit, nil
}

// closestType suggests a registered type within a small edit distance.
func (r *DefaultUnitRegistry) closestType(unitType string) string {
	best, bestDist := "", len(unitType)/2+1
	for _, candidate := range r.GetSupportedTypes() {
		if d := levenshtein.ComputeDistance(unitType, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// RegisterUnitFactory adds or replaces the factory for unitType.
func (r *DefaultUnitRegistry) RegisterUnitFactory(
	unitType string,
	factory ports.UnitFactory,
) error {
	if unitType == "" {
		return fmt.Errorf("unit type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[unitType] = factory
	return nil
}

// GetSupportedTypes returns the registered unit types in sorted order.
func (r *DefaultUnitRegistry) GetSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.factories))
}

// SetMetricsCollector replaces the collector injected into units created
// from now on.
func (r *DefaultUnitRegistry) SetMetricsCollector(mc ports.MetricsCollector) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics = mc
}

// MetricsCollector returns the collector injected into new units.
func (r *DefaultUnitRegistry) MetricsCollector() ports.MetricsCollector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.metrics
}
