package units

import (
	"context"
	"fmt"

	"github.com/ahrav/refclust/infrastructure/tabular"
	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

var _ ports.Unit = (*ScoresCSVUnit)(nil)

// ScoresCSVUnit writes the ranked candidate table and, when a destination
// is known, the best reference id.
type ScoresCSVUnit struct {
	name   string
	config ScoresCSVConfig
}

// ScoresCSVConfig defines the configuration parameters for the
// ScoresCSVUnit. Empty paths defer to domain.KeyScoresOutput and
// domain.KeyBestReferenceOutput in the state.
type ScoresCSVConfig struct {
	// Path is the scores table destination.
	Path string `yaml:"path" json:"path"`

	// BestReferencePath receives the winning accession.
	BestReferencePath string `yaml:"best_reference_path" json:"best_reference_path"`
}

// NewScoresCSVUnit creates a new ScoresCSVUnit.
func NewScoresCSVUnit(name string, config ScoresCSVConfig) (*ScoresCSVUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &ScoresCSVUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ScoresCSVUnit) Name() string { return u.name }

// Execute writes domain.KeyRanking. The scores path is required; the best
// reference file is skipped when no path is known. The state is returned
// unchanged.
func (u *ScoresCSVUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return state, err
	}
	ranking, err := domain.MustGet(state, domain.KeyRanking)
	if err != nil {
		return state, err
	}

	path := u.config.Path
	if path == "" {
		path, _ = domain.Get(state, domain.KeyScoresOutput)
	}
	if path == "" {
		return state, fmt.Errorf("%s: %w", u.name, ErrNoOutputPath)
	}
	if err := tabular.WriteScoresCSV(path, ranking); err != nil {
		return state, fmt.Errorf("write scores: %w", err)
	}

	bestPath := u.config.BestReferencePath
	if bestPath == "" {
		bestPath, _ = domain.Get(state, domain.KeyBestReferenceOutput)
	}
	if bestPath != "" {
		if err := tabular.WriteBestReference(bestPath, ranking.Best); err != nil {
			return state, fmt.Errorf("write best reference: %w", err)
		}
	}
	return state, nil
}

// Validate checks if the unit is properly configured.
func (u *ScoresCSVUnit) Validate() error {
	return validate.Struct(u.config)
}

// CreateScoresCSVUnit is a factory function that creates a ScoresCSVUnit
// from a configuration map, for use with the UnitRegistry.
func CreateScoresCSVUnit(id string, config map[string]any) (*ScoresCSVUnit, error) {
	var cfg ScoresCSVConfig
	path, ok, err := stringParam(config, "path")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.Path = path
	}
	best, ok, err := stringParam(config, "best_reference_path")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.BestReferencePath = best
	}
	return NewScoresCSVUnit(id, cfg)
}
