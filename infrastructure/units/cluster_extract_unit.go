package units

import (
	"context"
	"fmt"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

var _ ports.Unit = (*ClusterExtractUnit)(nil)

// ClusterExtractUnit assigns cluster ids from the connected components of
// the filtered similarity graph. When no filtered graph is present it
// clusters the unfiltered one, which links every sample sharing an edge.
//
// The unit is stateless and thread-safe.
type ClusterExtractUnit struct {
	name    string
	config  ClusterExtractConfig
	metrics ports.MetricsCollector
}

// ClusterExtractConfig defines the configuration parameters for the
// ClusterExtractUnit.
type ClusterExtractConfig struct {
	// RequireFiltered fails the unit when no filtered graph is present
	// instead of falling back to the unfiltered graph.
	RequireFiltered bool `yaml:"require_filtered" json:"require_filtered"`
}

// NewClusterExtractUnit creates a new ClusterExtractUnit.
func NewClusterExtractUnit(name string, config ClusterExtractConfig, metrics ports.MetricsCollector) (*ClusterExtractUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &ClusterExtractUnit{name: name, config: config, metrics: metrics}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ClusterExtractUnit) Name() string { return u.name }

// Execute stores the assignment under domain.KeyClusterAssignment.
func (u *ClusterExtractUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	graph, ok := domain.Get(state, domain.KeyFilteredGraph)
	if !ok {
		if u.config.RequireFiltered {
			return state, domain.NewStateError(domain.KeyFilteredGraph.Name(), "Get", domain.ErrKeyNotFound)
		}
		g, err := domain.MustGet(state, domain.KeySimilarityGraph)
		if err != nil {
			return state, err
		}
		graph = g
	}
	if graph == nil {
		return state, domain.NewStateError(domain.KeyFilteredGraph.Name(), "Get", domain.ErrEmptyValue)
	}

	assignment := domain.ExtractClusters(graph)

	if u.metrics != nil {
		labels := map[string]string{"unit": u.name}
		u.metrics.RecordGauge(ports.MetricSamples, float64(len(assignment.Samples)), labels)
		u.metrics.RecordGauge(ports.MetricClusters, float64(assignment.Len()), labels)
		for _, size := range assignment.Sizes() {
			u.metrics.RecordHistogram(ports.MetricClusterSize, float64(size), labels)
		}
	}

	return domain.With(state, domain.KeyClusterAssignment, assignment), nil
}

// Validate checks if the unit is properly configured.
func (u *ClusterExtractUnit) Validate() error {
	return validate.Struct(u.config)
}

// DefaultClusterExtractConfig returns a ClusterExtractConfig with sensible defaults.
func DefaultClusterExtractConfig() ClusterExtractConfig {
	return ClusterExtractConfig{RequireFiltered: false}
}

// CreateClusterExtractUnit is a factory function that creates a
// ClusterExtractUnit from a configuration map, for use with the UnitRegistry.
func CreateClusterExtractUnit(id string, config map[string]any) (*ClusterExtractUnit, error) {
	cfg := DefaultClusterExtractConfig()
	if val, ok := config["require_filtered"].(bool); ok {
		cfg.RequireFiltered = val
	}
	return NewClusterExtractUnit(id, cfg, metricsFrom(config))
}
