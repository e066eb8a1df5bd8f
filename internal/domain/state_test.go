package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewState verifies that a new State instance is initialized correctly.
func TestNewState(t *testing.T) {
	state := NewState()

	assert.NotNil(t, state.data, "NewState() should initialize the data map.")
	assert.Empty(t, state.data, "NewState() should create an empty state.")
}

// TestState_Get tests retrieval of the value types the workflow units store.
func TestState_Get(t *testing.T) {
	tests := []struct {
		name   string
		setup  func() State
		assert func(t *testing.T, state State)
	}{
		{
			name: "get existing string value",
			setup: func() State {
				return With(NewState(), KeyDistanceTablePath, "mash/dist.tsv")
			},
			assert: func(t *testing.T, state State) {
				got, ok := Get(state, KeyDistanceTablePath)
				assert.True(t, ok, "Get() should find an existing key.")
				assert.Equal(t, "mash/dist.tsv", got)
			},
		},
		{
			name:  "get non-existent key",
			setup: NewState,
			assert: func(t *testing.T, state State) {
				_, ok := Get(state, KeyBestCandidate)
				assert.False(t, ok, "Get() should not find a non-existent key.")
			},
		},
		{
			name: "get graph pointer",
			setup: func() State {
				g := BuildSimilarityGraph([]DistanceRecord{{SampleA: "A", SampleB: "B", Distance: 0.005}})
				return With(NewState(), KeySimilarityGraph, g)
			},
			assert: func(t *testing.T, state State) {
				got, ok := Get(state, KeySimilarityGraph)
				require.True(t, ok)
				assert.Equal(t, []string{"A", "B"}, got.Nodes)
				d, ok := got.Distance("B", "A")
				assert.True(t, ok)
				assert.Equal(t, 0.005, d)
			},
		},
		{
			name: "get float threshold",
			setup: func() State {
				return With(NewState(), KeyDistanceThreshold, 0.02)
			},
			assert: func(t *testing.T, state State) {
				got, ok := Get(state, KeyDistanceThreshold)
				assert.True(t, ok)
				assert.Equal(t, 0.02, got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assert(t, tt.setup())
		})
	}
}

// TestState_With verifies that With never modifies the receiver.
func TestState_With(t *testing.T) {
	original := NewState()
	updated := With(original, KeyBestCandidate, "GCF_000001")

	_, ok := Get(original, KeyBestCandidate)
	assert.False(t, ok, "With() should not modify the original state.")

	got, ok := Get(updated, KeyBestCandidate)
	require.True(t, ok)
	assert.Equal(t, "GCF_000001", got)

	updated2 := With(updated, KeyBestCandidate, "GCF_000002")
	v, _ := Get(updated, KeyBestCandidate)
	assert.Equal(t, "GCF_000001", v, "With() should not modify the previous state when updating.")
	v2, _ := Get(updated2, KeyBestCandidate)
	assert.Equal(t, "GCF_000002", v2)
}

// TestState_DeepCopy ensures values read back from State cannot be used to
// mutate the stored copy.
func TestState_DeepCopy(t *testing.T) {
	assignment := &ClusterAssignment{
		Samples:  map[string]int{"A": 1, "B": 1},
		Clusters: [][]string{{"A", "B"}},
	}
	state := With(NewState(), KeyClusterAssignment, assignment)

	assignment.Samples["A"] = 99
	got, ok := Get(state, KeyClusterAssignment)
	require.True(t, ok)
	assert.Equal(t, 1, got.Samples["A"], "stored value must not alias the caller's map")

	got.Clusters[0][0] = "mutated"
	again, _ := Get(state, KeyClusterAssignment)
	assert.Equal(t, "A", again.Clusters[0][0], "returned value must not alias the stored slice")
}

func TestState_WithMultipleAndKeys(t *testing.T) {
	state := NewState().WithMultiple(map[string]any{
		KeyScoresOutput.Name():   "out/scores.csv",
		KeyClustersOutput.Name(): "out/clusters.yaml",
	})

	assert.Equal(t, []string{"output.clusters", "output.scores"}, state.Keys())
	assert.True(t, state.Has(KeyScoresOutput.Name()))
	raw, ok := state.GetRaw(KeyClustersOutput.Name())
	require.True(t, ok)
	assert.Equal(t, "out/clusters.yaml", raw)
}

func TestMustGet(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := MustGet(NewState(), KeyResultFiles)
		require.Error(t, err)

		var stateErr *StateError
		require.True(t, errors.As(err, &stateErr))
		assert.Equal(t, "input.result_files", stateErr.Key)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("type mismatch", func(t *testing.T) {
		state := NewState().WithRaw(KeyResultFiles.Name(), "not-a-slice")
		_, err := MustGet(state, KeyResultFiles)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("present", func(t *testing.T) {
		state := With(NewState(), KeyResultFiles, []string{"a.tab"})
		got, err := MustGet(state, KeyResultFiles)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.tab"}, got)
	})
}

func TestState_ExecutionContext(t *testing.T) {
	_, ok := NewState().GetExecutionContext()
	assert.False(t, ok)

	state := NewState().WithExecutionContext(ExecutionContext{WorkflowID: "preclustering", ExecutionID: "run-1"})
	ec, ok := state.GetExecutionContext()
	require.True(t, ok)
	assert.Equal(t, "preclustering", ec.WorkflowID)
	assert.Equal(t, "run-1", ec.ExecutionID)
}
