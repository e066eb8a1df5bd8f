package units

import (
	"context"
	"fmt"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

var _ ports.Unit = (*MockClustersUnit)(nil)

// MockClustersUnit places every assembly in cluster 1. It stands in for
// the clustering stages when a run should analyse all samples together.
type MockClustersUnit struct {
	name string
}

// NewMockClustersUnit creates a new MockClustersUnit.
func NewMockClustersUnit(name string) (*MockClustersUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &MockClustersUnit{name: name}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *MockClustersUnit) Name() string { return u.name }

// Execute reads assembly paths from domain.KeyAssemblies and stores a
// single-cluster assignment keyed by sample name.
func (u *MockClustersUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	assemblies, err := domain.MustGet(state, domain.KeyAssemblies)
	if err != nil {
		return state, fmt.Errorf("%w: assemblies: %w", ErrNoInputs, err)
	}

	samples := make([]string, 0, len(assemblies))
	for _, a := range assemblies {
		samples = append(samples, domain.SampleName(a))
	}
	return domain.With(state, domain.KeyClusterAssignment, domain.SingleCluster(samples)), nil
}

// Validate checks if the unit is properly configured.
func (u *MockClustersUnit) Validate() error {
	if u.name == "" {
		return ErrEmptyUnitName
	}
	return nil
}

// CreateMockClustersUnit is a factory function that creates a
// MockClustersUnit, for use with the UnitRegistry. It takes no parameters.
func CreateMockClustersUnit(id string, _ map[string]any) (*MockClustersUnit, error) {
	return NewMockClustersUnit(id)
}
