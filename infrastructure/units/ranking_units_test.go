package units

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

// writeResultTable writes a ReferenceSeeker table for sample under dir.
func writeResultTable(t *testing.T, dir, sample string, rows ...string) string {
	t.Helper()
	lines := append([]string{
		"ReferenceSeeker banner",
		"#ID\tMash Distance\tANI\tCon. DNA\tTaxonomy ID\tAssembly Status\tOrganism",
	}, rows...)
	path := filepath.Join(dir, sample, "referenceseeker_"+sample+".tab")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func row(id string, mash, ani, conserved float64) string {
	return fmt.Sprintf("%s\t%g\t%g\t%g\t562\tcomplete\tE. coli", id, mash, ani, conserved)
}

func TestReferenceSeekerResultsUnit(t *testing.T) {
	dir := t.TempDir()
	p1 := writeResultTable(t, dir, "S1", row("X", 0.03, 95, 80), row("Y", 0.015, 98, 88))
	p2 := writeResultTable(t, dir, "S2", row("X", 0.02, 97, 85))
	p3 := writeResultTable(t, dir, "S3", row("X", 0.01, 99, 90))

	t.Run("files from state", func(t *testing.T) {
		metrics := newFakeMetrics()
		u, err := CreateReferenceSeekerResultsUnit("results", map[string]any{
			"max_concurrency": 2,
			ConfigKeyMetrics:  metrics,
		})
		require.NoError(t, err)

		state := domain.With(domain.NewState(), domain.KeyResultFiles, []string{p3, p1, p2})
		out, err := u.Execute(context.Background(), state)
		require.NoError(t, err)

		records, _ := domain.Get(out, domain.KeyCandidateRecords)
		require.Len(t, records, 4)
		assert.Equal(t, "S1", records[0].Sample)
		assert.Equal(t, "S3", records[3].Sample)
		assert.Equal(t, 4.0, metrics.counters[ports.MetricRecordsRead])
		assert.Equal(t, 3.0, metrics.counters[ports.MetricResultFiles])
	})

	t.Run("non-finite cell names file and row", func(t *testing.T) {
		bad := writeResultTable(t, t.TempDir(), "S9", row("X", 0.01, 97, 85), "Y\t0.01\tnan\t80\t562\tcomplete\tE. coli")
		u, err := NewReferenceSeekerResultsUnit("results", DefaultReferenceSeekerResultsConfig(), nil)
		require.NoError(t, err)

		state := domain.With(domain.NewState(), domain.KeyResultFiles, []string{p1, bad})
		out, err := u.Execute(context.Background(), state)
		var pe *domain.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, bad, pe.Path)
		assert.Equal(t, "ANI", pe.Field)
		assert.Equal(t, "nan", pe.Value)
		assert.False(t, out.Has(domain.KeyCandidateRecords.Name()))
	})

	t.Run("files discovered in directory", func(t *testing.T) {
		u, err := CreateReferenceSeekerResultsUnit("results", map[string]any{"input_dir": dir})
		require.NoError(t, err)

		out, err := u.Execute(context.Background(), domain.NewState())
		require.NoError(t, err)
		files, _ := domain.Get(out, domain.KeyResultFiles)
		assert.Equal(t, []string{p1, p2, p3}, files)
	})

	t.Run("no files", func(t *testing.T) {
		u, err := NewReferenceSeekerResultsUnit("results", DefaultReferenceSeekerResultsConfig(), nil)
		require.NoError(t, err)
		_, err = u.Execute(context.Background(), domain.NewState())

		var me *domain.MissingResultError
		require.True(t, errors.As(err, &me))
		assert.Empty(t, me.Path)
	})

	t.Run("invalid concurrency", func(t *testing.T) {
		_, err := CreateReferenceSeekerResultsUnit("results", map[string]any{"max_concurrency": 0})
		assert.Error(t, err)
	})
}

func TestCandidateAggregateUnit(t *testing.T) {
	records := []domain.CandidateRecord{
		{CandidateID: "X", ANI: 95, MashDistance: 0.03, ConservedDNA: 80, Sample: "S1"},
		{CandidateID: "X", ANI: 97, MashDistance: 0.02, ConservedDNA: 85, Sample: "S2"},
		{CandidateID: "X", ANI: 99, MashDistance: 0.01, ConservedDNA: 90, Sample: "S3"},
		{CandidateID: "Z", ANI: 80, MashDistance: 0.2, ConservedDNA: 20, Sample: "S1"},
	}

	tests := []struct {
		name    string
		config  CandidateAggregateConfig
		records []domain.CandidateRecord
		wantIDs []string
		wantErr bool
	}{
		{name: "keeps everything by default", config: DefaultCandidateAggregateConfig(), records: records, wantIDs: []string{"X", "Z"}},
		{name: "min ANI drops weak rows", config: CandidateAggregateConfig{MinANI: 90}, records: records, wantIDs: []string{"X"}},
		{
			name:    "rejects NaN",
			config:  DefaultCandidateAggregateConfig(),
			records: []domain.CandidateRecord{{CandidateID: "X", ANI: math.NaN()}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewCandidateAggregateUnit("aggregate", tt.config)
			require.NoError(t, err)

			state := domain.With(domain.NewState(), domain.KeyCandidateRecords, tt.records)
			out, err := u.Execute(context.Background(), state)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrMalformedRow)
				return
			}
			require.NoError(t, err)

			summaries, _ := domain.Get(out, domain.KeyCandidateSummaries)
			ids := make([]string, len(summaries))
			for i, s := range summaries {
				ids[i] = s.CandidateID
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, 3, summaries[0].Count)
			assert.Equal(t, 97.0, summaries[0].ANIMean)
		})
	}

	_, err := CreateCandidateAggregateUnit("aggregate", map[string]any{"min_ani": 101})
	assert.Error(t, err)
}

func TestCandidateRankUnit(t *testing.T) {
	summaries := []domain.CandidateSummary{
		{CandidateID: "far", Count: 2, ANIMean: 98, ConservedDNAMean: 90, MashDistanceMean: 0.02},
		{CandidateID: "near", Count: 2, ANIMean: 98, ConservedDNAMean: 90, MashDistanceMean: 0.01},
		{CandidateID: "rare", Count: 1, ANIMean: 99.9, ConservedDNAMean: 95, MashDistanceMean: 0.001},
	}

	t.Run("ranks and records best", func(t *testing.T) {
		metrics := newFakeMetrics()
		u, err := CreateCandidateRankUnit("rank", map[string]any{ConfigKeyMetrics: metrics})
		require.NoError(t, err)

		out, err := u.Execute(context.Background(), domain.With(domain.NewState(), domain.KeyCandidateSummaries, summaries))
		require.NoError(t, err)

		best, _ := domain.Get(out, domain.KeyBestCandidate)
		assert.Equal(t, "near", best)
		ranking, _ := domain.Get(out, domain.KeyRanking)
		require.Len(t, ranking.Candidates, 3)
		assert.Equal(t, "far", ranking.Candidates[1].CandidateID)
		assert.Equal(t, 3.0, metrics.gauges[ports.MetricCandidates])
	})

	t.Run("truncates table", func(t *testing.T) {
		u, err := CreateCandidateRankUnit("rank", map[string]any{"max_candidates": 1})
		require.NoError(t, err)
		ranking, err := u.Rank(summaries)
		require.NoError(t, err)
		assert.Len(t, ranking.Candidates, 1)
	})

	t.Run("no candidates reports samples", func(t *testing.T) {
		u, err := NewCandidateRankUnit("rank", DefaultCandidateRankConfig(), nil)
		require.NoError(t, err)
		state := domain.With(domain.NewState(), domain.KeyCandidateSummaries, []domain.CandidateSummary{})
		state = domain.With(state, domain.KeyResultFiles, []string{"a.tab", "b.tab"})

		_, err = u.Execute(context.Background(), state)
		var nc *domain.NoCandidatesError
		require.True(t, errors.As(err, &nc))
		assert.Equal(t, 2, nc.Samples)
	})
}
