package units

import (
	"context"
	"fmt"
	"math"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

// DefaultDistanceThreshold is the largest distance at which two samples
// are still linked.
const DefaultDistanceThreshold = 0.01

var _ ports.Unit = (*ThresholdFilterUnit)(nil)

// ThresholdFilterUnit removes graph edges longer than the distance
// threshold. A threshold stored under domain.KeyDistanceThreshold takes
// precedence over the configured one, so callers can override it per run.
type ThresholdFilterUnit struct {
	name   string
	config ThresholdFilterConfig
}

// ThresholdFilterConfig defines the configuration parameters for the
// ThresholdFilterUnit.
type ThresholdFilterConfig struct {
	// Threshold is the maximum distance an edge may have to be kept.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"min=0"`
}

// NewThresholdFilterUnit creates a new ThresholdFilterUnit.
func NewThresholdFilterUnit(name string, config ThresholdFilterConfig) (*ThresholdFilterUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validateThreshold(config.Threshold); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &ThresholdFilterUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ThresholdFilterUnit) Name() string { return u.name }

// Execute filters domain.KeySimilarityGraph into domain.KeyFilteredGraph.
func (u *ThresholdFilterUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	graph, err := domain.MustGet(state, domain.KeySimilarityGraph)
	if err != nil {
		return state, err
	}
	if graph == nil {
		return state, domain.NewStateError(domain.KeySimilarityGraph.Name(), "Get", domain.ErrEmptyValue)
	}

	threshold := u.config.Threshold
	if override, ok := domain.Get(state, domain.KeyDistanceThreshold); ok {
		if err := validateThreshold(override); err != nil {
			return state, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
		}
		threshold = override
	}

	return domain.With(state, domain.KeyFilteredGraph, graph.Filter(threshold)), nil
}

// Threshold returns the configured threshold.
func (u *ThresholdFilterUnit) Threshold() float64 { return u.config.Threshold }

// Validate checks if the unit is properly configured.
func (u *ThresholdFilterUnit) Validate() error {
	if err := validateThreshold(u.config.Threshold); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func validateThreshold(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return fmt.Errorf("threshold must be a finite non-negative number, got %v", t)
	}
	return nil
}

// DefaultThresholdFilterConfig returns a ThresholdFilterConfig with the
// default threshold.
func DefaultThresholdFilterConfig() ThresholdFilterConfig {
	return ThresholdFilterConfig{Threshold: DefaultDistanceThreshold}
}

// CreateThresholdFilterUnit is a factory function that creates a
// ThresholdFilterUnit from a configuration map, for use with the UnitRegistry.
func CreateThresholdFilterUnit(id string, config map[string]any) (*ThresholdFilterUnit, error) {
	cfg := DefaultThresholdFilterConfig()
	t, ok, err := floatParam(config, "threshold")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.Threshold = t
	}
	return NewThresholdFilterUnit(id, cfg)
}
