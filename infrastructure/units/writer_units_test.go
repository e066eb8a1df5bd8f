package units

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/refclust/infrastructure/tabular"
	"github.com/ahrav/refclust/internal/domain"
)

func TestClustersYAMLUnit(t *testing.T) {
	assignment := &domain.ClusterAssignment{
		Samples:  map[string]int{"B": 1, "A": 1, "C": 2},
		Clusters: [][]string{{"A", "B"}, {"C"}},
	}
	base := domain.With(domain.NewState(), domain.KeyClusterAssignment, assignment)

	tests := []struct {
		name   string
		config map[string]any
		state  func(dir string) domain.State
	}{
		{
			name:   "path from state",
			config: map[string]any{},
			state: func(dir string) domain.State {
				return domain.With(base, domain.KeyClustersOutput, filepath.Join(dir, tabular.ClustersFileName))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			u, err := CreateClustersYAMLUnit("write", tt.config)
			require.NoError(t, err)

			out, err := u.Execute(context.Background(), tt.state(dir))
			require.NoError(t, err)
			assert.True(t, out.Has(domain.KeyClusterAssignment.Name()))

			raw, err := os.ReadFile(filepath.Join(dir, tabular.ClustersFileName))
			require.NoError(t, err)
			assert.Equal(t, "A: 1\nB: 1\nC: 2\n", string(raw))
		})
	}

	t.Run("configured path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.yaml")
		u, err := CreateClustersYAMLUnit("write", map[string]any{"path": path})
		require.NoError(t, err)
		_, err = u.Execute(context.Background(), base)
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("no destination", func(t *testing.T) {
		u, err := NewClustersYAMLUnit("write", ClustersYAMLConfig{})
		require.NoError(t, err)
		_, err = u.Execute(context.Background(), base)
		assert.ErrorIs(t, err, ErrNoOutputPath)
	})

	t.Run("no assignment", func(t *testing.T) {
		u, err := NewClustersYAMLUnit("write", ClustersYAMLConfig{Path: "unused"})
		require.NoError(t, err)
		_, err = u.Execute(context.Background(), domain.NewState())
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})
}

func TestScoresCSVUnit(t *testing.T) {
	ranking := &domain.Ranking{
		Best: "GCF_1",
		Candidates: []domain.CandidateSummary{
			{CandidateID: "GCF_1", Count: 2, ANIMean: 98, ConservedDNAMean: 88, MashDistanceMean: 0.01},
		},
	}
	base := domain.With(domain.NewState(), domain.KeyRanking, ranking)

	t.Run("writes scores and best reference from state paths", func(t *testing.T) {
		dir := t.TempDir()
		state := domain.With(base, domain.KeyScoresOutput, filepath.Join(dir, tabular.ScoresFileName))
		state = domain.With(state, domain.KeyBestReferenceOutput, filepath.Join(dir, tabular.BestReferenceFileName))

		u, err := CreateScoresCSVUnit("scores", map[string]any{})
		require.NoError(t, err)
		_, err = u.Execute(context.Background(), state)
		require.NoError(t, err)

		scores, err := os.ReadFile(filepath.Join(dir, tabular.ScoresFileName))
		require.NoError(t, err)
		assert.Equal(t, "#ID,ANI_size,ANI_mean,Con. DNA_mean,Mash Distance_mean\nGCF_1,2,98,88,0.01\n", string(scores))

		best, err := os.ReadFile(filepath.Join(dir, tabular.BestReferenceFileName))
		require.NoError(t, err)
		assert.Equal(t, "GCF_1\n", string(best))
	})

	t.Run("best reference optional", func(t *testing.T) {
		dir := t.TempDir()
		u, err := CreateScoresCSVUnit("scores", map[string]any{"path": filepath.Join(dir, "s.csv")})
		require.NoError(t, err)
		_, err = u.Execute(context.Background(), base)
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("no destination", func(t *testing.T) {
		u, err := NewScoresCSVUnit("scores", ScoresCSVConfig{})
		require.NoError(t, err)
		_, err = u.Execute(context.Background(), base)
		assert.ErrorIs(t, err, ErrNoOutputPath)
	})
}
