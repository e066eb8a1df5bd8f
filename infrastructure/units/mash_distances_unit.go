package units

import (
	"context"
	"fmt"

	"github.com/ahrav/refclust/infrastructure/tabular"
	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

var _ ports.Unit = (*MashDistancesUnit)(nil)

// MashDistancesUnit reads a Mash distance table into distance records.
// The table path comes from its configuration or, when unset, from
// domain.KeyDistanceTablePath in the state.
type MashDistancesUnit struct {
	name    string
	config  MashDistancesConfig
	metrics ports.MetricsCollector
}

// MashDistancesConfig defines the configuration parameters for the
// MashDistancesUnit.
type MashDistancesConfig struct {
	// Path is the distance table to read. Empty defers to the state.
	Path string `yaml:"path" json:"path"`
}

// NewMashDistancesUnit creates a new MashDistancesUnit.
func NewMashDistancesUnit(name string, config MashDistancesConfig, metrics ports.MetricsCollector) (*MashDistancesUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &MashDistancesUnit{name: name, config: config, metrics: metrics}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *MashDistancesUnit) Name() string { return u.name }

// Execute parses the table and stores the rows under
// domain.KeyDistanceRecords. Any malformed row fails the unit.
func (u *MashDistancesUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return state, err
	}

	path := u.config.Path
	if path == "" {
		p, err := domain.MustGet(state, domain.KeyDistanceTablePath)
		if err != nil {
			return state, fmt.Errorf("%w: distance table path: %w", ErrNoInputs, err)
		}
		path = p
	}

	records, err := tabular.ReadMashFile(path)
	if err != nil {
		return state, err
	}

	if u.metrics != nil {
		u.metrics.RecordCounter(ports.MetricRecordsRead, float64(len(records)),
			map[string]string{"unit": u.name, "kind": "distance"})
	}

	if records == nil {
		records = []domain.DistanceRecord{}
	}
	return domain.With(state, domain.KeyDistanceRecords, records), nil
}

// Validate checks if the unit is properly configured.
func (u *MashDistancesUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DefaultMashDistancesConfig returns a MashDistancesConfig that reads the
// path from the state.
func DefaultMashDistancesConfig() MashDistancesConfig {
	return MashDistancesConfig{}
}

// CreateMashDistancesUnit is a factory function that creates a
// MashDistancesUnit from a configuration map, for use with the UnitRegistry.
func CreateMashDistancesUnit(id string, config map[string]any) (*MashDistancesUnit, error) {
	cfg := DefaultMashDistancesConfig()
	path, ok, err := stringParam(config, "path")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.Path = path
	}
	return NewMashDistancesUnit(id, cfg, metricsFrom(config))
}
