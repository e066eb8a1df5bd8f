package units

import (
	"context"
	"fmt"

	"github.com/ahrav/refclust/infrastructure/tabular"
	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

var _ ports.Unit = (*ClustersYAMLUnit)(nil)

// ClustersYAMLUnit writes the cluster assignment as a YAML mapping of
// sample name to cluster id.
type ClustersYAMLUnit struct {
	name   string
	config ClustersYAMLConfig
}

// ClustersYAMLConfig defines the configuration parameters for the
// ClustersYAMLUnit.
type ClustersYAMLConfig struct {
	// Path is the destination file. Empty defers to
	// domain.KeyClustersOutput in the state.
	Path string `yaml:"path" json:"path"`
}

// NewClustersYAMLUnit creates a new ClustersYAMLUnit.
func NewClustersYAMLUnit(name string, config ClustersYAMLConfig) (*ClustersYAMLUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &ClustersYAMLUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ClustersYAMLUnit) Name() string { return u.name }

// Execute writes domain.KeyClusterAssignment. The state is returned
// unchanged.
func (u *ClustersYAMLUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return state, err
	}
	assignment, err := domain.MustGet(state, domain.KeyClusterAssignment)
	if err != nil {
		return state, err
	}

	path := u.config.Path
	if path == "" {
		path, _ = domain.Get(state, domain.KeyClustersOutput)
	}
	if path == "" {
		return state, fmt.Errorf("%s: %w", u.name, ErrNoOutputPath)
	}

	if err := tabular.WriteClustersYAML(path, assignment); err != nil {
		return state, fmt.Errorf("write clusters: %w", err)
	}
	return state, nil
}

// Validate checks if the unit is properly configured.
func (u *ClustersYAMLUnit) Validate() error {
	return validate.Struct(u.config)
}

// CreateClustersYAMLUnit is a factory function that creates a
// ClustersYAMLUnit from a configuration map, for use with the UnitRegistry.
func CreateClustersYAMLUnit(id string, config map[string]any) (*ClustersYAMLUnit, error) {
	var cfg ClustersYAMLConfig
	path, ok, err := stringParam(config, "path")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.Path = path
	}
	return NewClustersYAMLUnit(id, cfg)
}
