package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateCandidates(t *testing.T) {
	records := []CandidateRecord{
		{CandidateID: "X", ANI: 95.0, MashDistance: 0.03, ConservedDNA: 80, Sample: "S1"},
		{CandidateID: "X", ANI: 97.0, MashDistance: 0.02, ConservedDNA: 85, Sample: "S2"},
		{CandidateID: "X", ANI: 99.0, MashDistance: 0.01, ConservedDNA: 90, Sample: "S3"},
		{CandidateID: "Y", ANI: 98.0, MashDistance: 0.015, ConservedDNA: 88, Sample: "S2"},
	}

	got := AggregateCandidates(records)
	require.Len(t, got, 2)

	x := got[0]
	assert.Equal(t, "X", x.CandidateID)
	assert.Equal(t, 3, x.Count)
	assert.Equal(t, 97.0, x.ANIMean)
	assert.InDelta(t, 0.02, x.MashDistanceMean, 1e-12)
	assert.InDelta(t, 85.0, x.ConservedDNAMean, 1e-12)
	assert.Equal(t, []string{"S1", "S2", "S3"}, x.Samples)

	y := got[1]
	assert.Equal(t, "Y", y.CandidateID)
	assert.Equal(t, 1, y.Count, "absent candidates are not zero-filled")
	assert.Equal(t, 98.0, y.ANIMean)
}

func TestAggregateCandidates_Empty(t *testing.T) {
	assert.Empty(t, AggregateCandidates(nil))
}

func TestRankCandidates(t *testing.T) {
	tests := []struct {
		name      string
		summaries []CandidateSummary
		wantOrder []string
	}{
		{
			name: "count outranks ANI",
			summaries: []CandidateSummary{
				{CandidateID: "high-ani", Count: 1, ANIMean: 99.9},
				{CandidateID: "popular", Count: 3, ANIMean: 96.0},
			},
			wantOrder: []string{"popular", "high-ani"},
		},
		{
			name: "ANI breaks count ties",
			summaries: []CandidateSummary{
				{CandidateID: "a", Count: 2, ANIMean: 97.0},
				{CandidateID: "b", Count: 2, ANIMean: 98.0},
			},
			wantOrder: []string{"b", "a"},
		},
		{
			name: "conserved DNA breaks ANI ties",
			summaries: []CandidateSummary{
				{CandidateID: "a", Count: 2, ANIMean: 98.0, ConservedDNAMean: 80},
				{CandidateID: "b", Count: 2, ANIMean: 98.0, ConservedDNAMean: 90},
			},
			wantOrder: []string{"b", "a"},
		},
		{
			name: "smaller mash distance wins remaining ties",
			summaries: []CandidateSummary{
				{CandidateID: "far", Count: 2, ANIMean: 98.0, ConservedDNAMean: 90, MashDistanceMean: 0.02},
				{CandidateID: "near", Count: 2, ANIMean: 98.0, ConservedDNAMean: 90, MashDistanceMean: 0.01},
			},
			wantOrder: []string{"near", "far"},
		},
		{
			name: "identifier settles full ties",
			summaries: []CandidateSummary{
				{CandidateID: "GCF_2", Count: 1, ANIMean: 98.0},
				{CandidateID: "GCF_1", Count: 1, ANIMean: 98.0},
			},
			wantOrder: []string{"GCF_1", "GCF_2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranking, err := RankCandidates(tt.summaries)
			require.NoError(t, err)

			order := make([]string, len(ranking.Candidates))
			for i, c := range ranking.Candidates {
				order[i] = c.CandidateID
			}
			assert.Equal(t, tt.wantOrder, order)
			assert.Equal(t, tt.wantOrder[0], ranking.Best)
		})
	}
}

func TestRankCandidates_DoesNotReorderInput(t *testing.T) {
	in := []CandidateSummary{
		{CandidateID: "b", Count: 1},
		{CandidateID: "a", Count: 2},
	}
	_, err := RankCandidates(in)
	require.NoError(t, err)
	assert.Equal(t, "b", in[0].CandidateID)
}

func TestRankCandidates_Empty(t *testing.T) {
	ranking, err := RankCandidates(nil)
	assert.Nil(t, ranking)

	var noCandidates *NoCandidatesError
	require.True(t, errors.As(err, &noCandidates))
	assert.ErrorIs(t, err, ErrNoCandidates)
}
