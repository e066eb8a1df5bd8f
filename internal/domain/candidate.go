package domain

import (
	"cmp"
	"slices"
	"strings"
)

// CandidateRecord is one row of a per-sample identification result: a
// candidate reference genome proposed for Sample.
type CandidateRecord struct {
	// CandidateID is the reference accession.
	CandidateID string `json:"candidate_id"`

	// ANI is the average nucleotide identity to the candidate.
	ANI float64 `json:"ani"`

	// MashDistance is the Mash distance to the candidate.
	MashDistance float64 `json:"mash_distance"`

	// ConservedDNA is the fraction of the sample alignable to the candidate.
	ConservedDNA float64 `json:"conserved_dna"`

	// Sample is the sample whose result table reported this row.
	Sample string `json:"sample"`
}

// CandidateSummary aggregates every row reporting one candidate.
type CandidateSummary struct {
	CandidateID      string   `json:"candidate_id"`
	Count            int      `json:"count"`
	ANIMean          float64  `json:"ani_mean"`
	ConservedDNAMean float64  `json:"conserved_dna_mean"`
	MashDistanceMean float64  `json:"mash_distance_mean"`
	Samples          []string `json:"samples"`
}

// Ranking is the ordered candidate table; Best is the head of Candidates.
type Ranking struct {
	Candidates []CandidateSummary `json:"candidates"`
	Best       string             `json:"best"`
}

// AggregateCandidates groups records by candidate and computes the mean of
// each numeric column along with the number of contributing rows. A
// candidate contributes only where a sample reported it. The result is
// ordered by candidate id.
func AggregateCandidates(records []CandidateRecord) []CandidateSummary {
	type acc struct {
		n                   int
		ani, mash, conserve float64
		samples             []string
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		a, ok := groups[r.CandidateID]
		if !ok {
			a = &acc{}
			groups[r.CandidateID] = a
		}
		a.n++
		a.ani += r.ANI
		a.mash += r.MashDistance
		a.conserve += r.ConservedDNA
		a.samples = append(a.samples, r.Sample)
	}

	out := make([]CandidateSummary, 0, len(groups))
	for id, a := range groups {
		n := float64(a.n)
		samples := slices.Clone(a.samples)
		slices.Sort(samples)
		out = append(out, CandidateSummary{
			CandidateID:      id,
			Count:            a.n,
			ANIMean:          a.ani / n,
			ConservedDNAMean: a.conserve / n,
			MashDistanceMean: a.mash / n,
			Samples:          slices.Compact(samples),
		})
	}
	slices.SortFunc(out, func(x, y CandidateSummary) int {
		return strings.Compare(x.CandidateID, y.CandidateID)
	})
	return out
}

// CompareCandidates orders summaries best first: more reporting samples,
// then higher mean ANI, then higher mean conserved DNA, then lower mean
// Mash distance, then candidate id.
func CompareCandidates(x, y CandidateSummary) int {
	if c := cmp.Compare(y.Count, x.Count); c != 0 {
		return c
	}
	if c := cmp.Compare(y.ANIMean, x.ANIMean); c != 0 {
		return c
	}
	if c := cmp.Compare(y.ConservedDNAMean, x.ConservedDNAMean); c != 0 {
		return c
	}
	if c := cmp.Compare(x.MashDistanceMean, y.MashDistanceMean); c != 0 {
		return c
	}
	return strings.Compare(x.CandidateID, y.CandidateID)
}

// RankCandidates sorts summaries with CompareCandidates and returns the
// ranking. An empty input yields a *NoCandidatesError.
func RankCandidates(summaries []CandidateSummary) (*Ranking, error) {
	if len(summaries) == 0 {
		return nil, &NoCandidatesError{}
	}
	ranked := slices.Clone(summaries)
	slices.SortFunc(ranked, CompareCandidates)
	return &Ranking{Candidates: ranked, Best: ranked[0].CandidateID}, nil
}
