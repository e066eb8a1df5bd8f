package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

func scenarioRecords() []domain.DistanceRecord {
	return []domain.DistanceRecord{
		{SampleA: "A", SampleB: "A", Distance: 0},
		{SampleA: "A", SampleB: "B", Distance: 0.005},
		{SampleA: "B", SampleB: "C", Distance: 0.02},
	}
}

// runClustering executes graph, filter and extract units in sequence.
func runClustering(t *testing.T, state domain.State, filterConfig map[string]any) (domain.State, *fakeMetrics) {
	t.Helper()
	metrics := newFakeMetrics()

	graph, err := CreateDistanceGraphUnit("graph", map[string]any{ConfigKeyMetrics: metrics})
	require.NoError(t, err)
	filter, err := CreateThresholdFilterUnit("filter", filterConfig)
	require.NoError(t, err)
	extract, err := CreateClusterExtractUnit("extract", map[string]any{ConfigKeyMetrics: metrics})
	require.NoError(t, err)

	for _, u := range []ports.Unit{graph, filter, extract} {
		state, err = u.Execute(context.Background(), state)
		require.NoError(t, err, u.Name())
	}
	return state, metrics
}

func TestClusteringUnits_Scenario(t *testing.T) {
	state := domain.With(domain.NewState(), domain.KeyDistanceRecords, scenarioRecords())

	out, metrics := runClustering(t, state, map[string]any{})

	assignment, ok := domain.Get(out, domain.KeyClusterAssignment)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 2}, assignment.Samples)

	assert.Equal(t, 3.0, metrics.gauges[ports.MetricSamples])
	assert.Equal(t, 2.0, metrics.gauges[ports.MetricClusters])
	assert.Equal(t, []float64{2, 1}, metrics.histograms[ports.MetricClusterSize])

	graph, _ := domain.Get(out, domain.KeySimilarityGraph)
	assert.Equal(t, 2, graph.EdgeCount(), "unfiltered graph is kept")
}

func TestThresholdFilterUnit(t *testing.T) {
	tests := []struct {
		name        string
		config      map[string]any
		override    *float64
		wantSamples map[string]int
		wantErr     bool
	}{
		{
			name:        "default threshold",
			config:      map[string]any{},
			wantSamples: map[string]int{"A": 1, "B": 1, "C": 2},
		},
		{
			name:        "integer threshold from yaml joins everything",
			config:      map[string]any{"threshold": 1},
			wantSamples: map[string]int{"A": 1, "B": 1, "C": 1},
		},
		{
			name:        "state override wins",
			config:      map[string]any{"threshold": 0.5},
			override:    ptr(0.0),
			wantSamples: map[string]int{"A": 1, "B": 2, "C": 3},
		},
		{
			name:     "negative override rejected",
			config:   map[string]any{},
			override: ptr(-0.1),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := domain.With(domain.NewState(), domain.KeySimilarityGraph,
				domain.BuildSimilarityGraph(scenarioRecords()))
			if tt.override != nil {
				state = domain.With(state, domain.KeyDistanceThreshold, *tt.override)
			}

			filter, err := CreateThresholdFilterUnit("filter", tt.config)
			require.NoError(t, err)
			out, err := filter.Execute(context.Background(), state)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)

			g, ok := domain.Get(out, domain.KeyFilteredGraph)
			require.True(t, ok)
			assert.Equal(t, tt.wantSamples, domain.ExtractClusters(g).Samples)
		})
	}
}

func TestThresholdFilterUnit_Config(t *testing.T) {
	_, err := CreateThresholdFilterUnit("filter", map[string]any{"threshold": -0.01})
	assert.Error(t, err)

	_, err = CreateThresholdFilterUnit("filter", map[string]any{"threshold": "0.01"})
	assert.Error(t, err)

	u, err := CreateThresholdFilterUnit("filter", map[string]any{"threshold": 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, u.Threshold())
	assert.NoError(t, u.Validate())
}

func TestClusterExtractUnit_InputSelection(t *testing.T) {
	unfiltered := domain.BuildSimilarityGraph(scenarioRecords())
	base := domain.With(domain.NewState(), domain.KeySimilarityGraph, unfiltered)

	t.Run("falls back to unfiltered graph", func(t *testing.T) {
		u, err := NewClusterExtractUnit("extract", DefaultClusterExtractConfig(), nil)
		require.NoError(t, err)
		out, err := u.Execute(context.Background(), base)
		require.NoError(t, err)
		a, _ := domain.Get(out, domain.KeyClusterAssignment)
		assert.Equal(t, 1, a.Len())
	})

	t.Run("requires filtered graph", func(t *testing.T) {
		u, err := CreateClusterExtractUnit("extract", map[string]any{"require_filtered": true})
		require.NoError(t, err)
		_, err = u.Execute(context.Background(), base)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("no graph at all", func(t *testing.T) {
		u, err := NewClusterExtractUnit("extract", DefaultClusterExtractConfig(), nil)
		require.NoError(t, err)
		_, err = u.Execute(context.Background(), domain.NewState())
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})
}

func TestDistanceGraphUnit_MinSamples(t *testing.T) {
	u, err := CreateDistanceGraphUnit("graph", map[string]any{"min_samples": 4})
	require.NoError(t, err)

	state := domain.With(domain.NewState(), domain.KeyDistanceRecords, scenarioRecords())
	_, err = u.Execute(context.Background(), state)
	assert.ErrorContains(t, err, "at least 4 required")

	_, err = CreateDistanceGraphUnit("graph", map[string]any{"min_samples": -1})
	assert.Error(t, err)
}

func TestMockClustersUnit(t *testing.T) {
	u, err := CreateMockClustersUnit("mock", nil)
	require.NoError(t, err)
	require.NoError(t, u.Validate())

	state := domain.With(domain.NewState(), domain.KeyAssemblies, []string{"in/S2.fasta", "in/S1.fasta", "other/S1.fa"})
	out, err := u.Execute(context.Background(), state)
	require.NoError(t, err)

	a, ok := domain.Get(out, domain.KeyClusterAssignment)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"S1": 1, "S2": 1}, a.Samples)

	_, err = u.Execute(context.Background(), domain.NewState())
	assert.ErrorIs(t, err, ErrNoInputs)
}

func ptr[T any](v T) *T { return &v }
