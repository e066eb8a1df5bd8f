// Package testutils provides utilities for testing, including synthetic
// input generators. These components are intended for internal use within
// the project's test suites and are not part of the public API.
package testutils

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/refclust/internal/domain"
)

var validate = validator.New()

// SyntheticConfig controls the shape of a generated dataset.
type SyntheticConfig struct {
	// Samples is the number of assemblies.
	Samples int `json:"samples" validate:"min=1,max=10000"`

	// Groups is the number of planted clusters. Samples are spread over
	// them, so Groups must not exceed Samples.
	Groups int `json:"groups" validate:"min=1,ltefield=Samples"`

	// Candidates is the number of reference candidates, the winner included.
	Candidates int `json:"candidates" validate:"min=1,max=1000"`

	// Threshold is the clustering cutoff the planted groups are built for.
	Threshold float64 `json:"threshold" validate:"gt=0,lt=0.5"`

	// ExtraEdgeRate is the probability of an additional within-group edge
	// beyond the spanning chain.
	ExtraEdgeRate float64 `json:"extra_edge_rate" validate:"min=0,max=1"`
}

// DefaultSyntheticConfig returns a small dataset shape suitable for tests.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Samples:       24,
		Groups:        4,
		Candidates:    6,
		Threshold:     0.01,
		ExtraEdgeRate: 0.3,
	}
}

// SyntheticDataset is a generated distance table and set of per-sample
// ReferenceSeeker results, together with the answers the engines should
// reproduce.
type SyntheticDataset struct {
	Metadata DatasetMetadata `json:"metadata"`

	// Samples lists sample names in sorted order.
	Samples []string `json:"samples"`

	// Groups holds the planted clusters, each sorted.
	Groups [][]string `json:"groups"`

	// Distances is the pairwise table, in the order it is written.
	Distances []domain.DistanceRecord `json:"-"`

	// Results maps a sample to its ReferenceSeeker rows.
	Results map[string][]domain.CandidateRecord `json:"-"`

	// ExpectedBest is the candidate that must win the ranking.
	ExpectedBest string `json:"expected_best"`
}

// DatasetMetadata records how a dataset was produced.
type DatasetMetadata struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Seed        int64           `json:"seed"`
	Config      SyntheticConfig `json:"config"`
}

// GenerateSyntheticDataset builds a dataset from cfg. The seed controls
// every random choice, so equal inputs give equal datasets.
//
// Samples in one group are linked by a chain of edges at or below
// cfg.Threshold, so each group is one connected component. Edges across
// groups are always above twice the threshold. The winning candidate is
// reported for every sample; the others are missing from at least one.
func GenerateSyntheticDataset(cfg SyntheticConfig, seed int64) (*SyntheticDataset, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid synthetic config: %w", err)
	}
	rng := rand.New(rand.NewSource(seed))

	samples := make([]string, cfg.Samples)
	for i := range samples {
		samples[i] = fmt.Sprintf("S%04d", i+1)
	}

	// Shuffle before dealing so group membership is not contiguous.
	dealt := slices.Clone(samples)
	rng.Shuffle(len(dealt), func(i, j int) { dealt[i], dealt[j] = dealt[j], dealt[i] })
	groups := make([][]string, cfg.Groups)
	for i, s := range dealt {
		groups[i%cfg.Groups] = append(groups[i%cfg.Groups], s)
	}

	ds := &SyntheticDataset{
		Metadata: DatasetMetadata{
			Name:        "synthetic",
			Version:     "1.0.0",
			Description: "Synthetic Mash distances and ReferenceSeeker results. NOT REAL GENOMIC DATA.",
			Seed:        seed,
			Config:      cfg,
		},
		Samples: samples,
		Results: make(map[string][]domain.CandidateRecord, cfg.Samples),
	}

	for _, g := range groups {
		slices.Sort(g)
		ds.Distances = append(ds.Distances, withinGroupDistances(rng, g, cfg)...)
	}
	ds.Distances = append(ds.Distances, crossGroupDistances(rng, groups, cfg)...)
	rng.Shuffle(len(ds.Distances), func(i, j int) {
		ds.Distances[i], ds.Distances[j] = ds.Distances[j], ds.Distances[i]
	})
	for i := range ds.Distances {
		ds.Distances[i].Row = i + 1
	}

	slices.SortFunc(groups, func(a, b []string) int { return cmp.Compare(a[0], b[0]) })
	ds.Groups = groups

	ds.ExpectedBest = candidateID(0)
	for i, s := range samples {
		ds.Results[s] = candidateRows(rng, s, i, cfg.Candidates)
	}

	return ds, nil
}

func candidateID(i int) string {
	return fmt.Sprintf("GCF_%09d.1", 1000+i)
}

// withinGroupDistances links every member to the previous one below the
// threshold and adds random extra short edges.
func withinGroupDistances(rng *rand.Rand, group []string, cfg SyntheticConfig) []domain.DistanceRecord {
	var out []domain.DistanceRecord
	for i, s := range group {
		out = append(out, mashRow(s, s, 0))
		if i == 0 {
			continue
		}
		out = append(out, mashRow(group[i-1], s, rng.Float64()*cfg.Threshold))
		for j := 0; j < i-1; j++ {
			if rng.Float64() < cfg.ExtraEdgeRate {
				out = append(out, mashRow(group[j], s, rng.Float64()*cfg.Threshold))
			}
		}
	}
	return out
}

// crossGroupDistances adds one far edge between every pair of groups.
func crossGroupDistances(rng *rand.Rand, groups [][]string, cfg SyntheticConfig) []domain.DistanceRecord {
	var out []domain.DistanceRecord
	for i := range groups {
		for j := i + 1; j < len(groups); j++ {
			a := groups[i][rng.Intn(len(groups[i]))]
			b := groups[j][rng.Intn(len(groups[j]))]
			d := 2*cfg.Threshold + rng.Float64()*(0.5-2*cfg.Threshold)
			out = append(out, mashRow(a, b, d))
		}
	}
	return out
}

func mashRow(a, b string, d float64) domain.DistanceRecord {
	return domain.DistanceRecord{
		SampleA:  a,
		SampleB:  b,
		Distance: d,
		PValue:   0,
		Matches:  fmt.Sprintf("%d/1000", 1000-int(d*1000)),
	}
}

// candidateRows reports the winner for every sample and each other
// candidate for a random subset that always excludes sample 0, so the
// winner has the strictly highest count.
func candidateRows(rng *rand.Rand, sample string, index, candidates int) []domain.CandidateRecord {
	rows := []domain.CandidateRecord{{
		CandidateID:  candidateID(0),
		ANI:          98 + rng.Float64()*2,
		MashDistance: rng.Float64() * 0.01,
		ConservedDNA: 85 + rng.Float64()*10,
		Sample:       sample,
	}}
	for c := 1; c < candidates; c++ {
		if index == 0 || rng.Float64() < 0.5 {
			continue
		}
		rows = append(rows, domain.CandidateRecord{
			CandidateID:  candidateID(c),
			ANI:          95 + rng.Float64()*4,
			MashDistance: 0.01 + rng.Float64()*0.04,
			ConservedDNA: 60 + rng.Float64()*30,
			Sample:       sample,
		})
	}
	// ReferenceSeeker sorts its rows by ANI.
	slices.SortFunc(rows, func(a, b domain.CandidateRecord) int { return cmp.Compare(b.ANI, a.ANI) })
	return rows
}

// Assignment returns the planted clusters as sample -> group index, with
// groups numbered from 1 in the order of Groups.
func (ds *SyntheticDataset) Assignment() map[string]int {
	out := make(map[string]int, len(ds.Samples))
	for i, g := range ds.Groups {
		for _, s := range g {
			out[s] = i + 1
		}
	}
	return out
}
