package units

import (
	"context"
	"fmt"

	"github.com/ahrav/refclust/infrastructure/tabular"
	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

var _ ports.Unit = (*ReferenceSeekerResultsUnit)(nil)

// ReferenceSeekerResultsUnit reads per-sample ReferenceSeeker tables into
// candidate records. Files are taken from domain.KeyResultFiles or, when
// that is absent, discovered under the configured input directory.
type ReferenceSeekerResultsUnit struct {
	name    string
	config  ReferenceSeekerResultsConfig
	metrics ports.MetricsCollector
}

// ReferenceSeekerResultsConfig defines the configuration parameters for the
// ReferenceSeekerResultsUnit.
type ReferenceSeekerResultsConfig struct {
	// MaxConcurrency bounds how many tables are parsed at once.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=1,max=256"`

	// Prefix is stripped from file stems to form sample names and selects
	// files during directory discovery.
	Prefix string `yaml:"prefix" json:"prefix" validate:"required"`

	// InputDir is searched for result tables when the state names none.
	InputDir string `yaml:"input_dir" json:"input_dir"`
}

// NewReferenceSeekerResultsUnit creates a new ReferenceSeekerResultsUnit.
func NewReferenceSeekerResultsUnit(
	name string,
	config ReferenceSeekerResultsConfig,
	metrics ports.MetricsCollector,
) (*ReferenceSeekerResultsUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &ReferenceSeekerResultsUnit{name: name, config: config, metrics: metrics}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ReferenceSeekerResultsUnit) Name() string { return u.name }

// Execute parses the tables and stores their rows under
// domain.KeyCandidateRecords, ordered by sample. The discovered file list
// is stored under domain.KeyResultFiles.
func (u *ReferenceSeekerResultsUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	files, ok := domain.Get(state, domain.KeyResultFiles)
	if !ok && u.config.InputDir != "" {
		found, err := tabular.FindReferenceSeekerResults(u.config.InputDir, u.config.Prefix)
		if err != nil {
			return state, err
		}
		files = found
	}

	records, err := tabular.ReadReferenceSeekerResults(ctx, files, tabular.ReadOptions{
		MaxConcurrency: u.config.MaxConcurrency,
		Prefix:         u.config.Prefix,
	})
	if err != nil {
		return state, err
	}

	if u.metrics != nil {
		labels := map[string]string{"unit": u.name, "kind": "candidate"}
		u.metrics.RecordCounter(ports.MetricRecordsRead, float64(len(records)), labels)
		u.metrics.RecordCounter(ports.MetricResultFiles, float64(len(files)), map[string]string{"unit": u.name})
	}

	if files == nil {
		files = []string{}
	}
	return state.WithMultiple(map[string]any{
		domain.KeyResultFiles.Name():      files,
		domain.KeyCandidateRecords.Name(): records,
	}), nil
}

// Validate checks if the unit is properly configured.
func (u *ReferenceSeekerResultsUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// DefaultReferenceSeekerResultsConfig returns a ReferenceSeekerResultsConfig
// with sensible defaults.
func DefaultReferenceSeekerResultsConfig() ReferenceSeekerResultsConfig {
	return ReferenceSeekerResultsConfig{
		MaxConcurrency: tabular.DefaultMaxConcurrency,
		Prefix:         tabular.DefaultResultPrefix,
	}
}

// CreateReferenceSeekerResultsUnit is a factory function that creates a
// ReferenceSeekerResultsUnit from a configuration map, for use with the
// UnitRegistry.
func CreateReferenceSeekerResultsUnit(id string, config map[string]any) (*ReferenceSeekerResultsUnit, error) {
	cfg := DefaultReferenceSeekerResultsConfig()
	n, ok, err := intParam(config, "max_concurrency")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.MaxConcurrency = n
	}
	prefix, ok, err := stringParam(config, "prefix")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.Prefix = prefix
	}
	dir, ok, err := stringParam(config, "input_dir")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.InputDir = dir
	}
	return NewReferenceSeekerResultsUnit(id, cfg, metricsFrom(config))
}
