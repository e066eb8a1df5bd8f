package domain

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractClusters(t *testing.T) {
	tests := []struct {
		name      string
		records   []DistanceRecord
		threshold float64
		want      map[string]int
		wantSizes []int
	}{
		{
			name: "singleton ranked after larger cluster",
			records: []DistanceRecord{
				{SampleA: "A", SampleB: "B", Distance: 0.005},
				{SampleA: "B", SampleB: "C", Distance: 0.02},
			},
			threshold: 0.01,
			want:      map[string]int{"A": 1, "B": 1, "C": 2},
			wantSizes: []int{2, 1},
		},
		{
			name: "largest component first even when discovered later",
			records: []DistanceRecord{
				{SampleA: "A", SampleB: "Z", Distance: 0.5},
				{SampleA: "X", SampleB: "Y", Distance: 0.001},
				{SampleA: "Y", SampleB: "Z", Distance: 0.001},
			},
			threshold: 0.01,
			want:      map[string]int{"X": 1, "Y": 1, "Z": 1, "A": 2},
			wantSizes: []int{3, 1},
		},
		{
			name: "equal sizes keep sorted discovery order",
			records: []DistanceRecord{
				{SampleA: "D", SampleB: "C", Distance: 0.001},
				{SampleA: "B", SampleB: "A", Distance: 0.001},
				{SampleA: "A", SampleB: "C", Distance: 0.9},
			},
			threshold: 0.01,
			want:      map[string]int{"A": 1, "B": 1, "C": 2, "D": 2},
			wantSizes: []int{2, 2},
		},
		{
			name: "all edges removed gives singletons in name order",
			records: []DistanceRecord{
				{SampleA: "B", SampleB: "A", Distance: 0.3},
				{SampleA: "C", SampleB: "A", Distance: 0.3},
			},
			threshold: 0.01,
			want:      map[string]int{"A": 1, "B": 2, "C": 3},
			wantSizes: []int{1, 1, 1},
		},
		{
			name:      "self pair only sample still clustered",
			records:   []DistanceRecord{{SampleA: "A", SampleB: "A"}},
			threshold: 0.01,
			want:      map[string]int{"A": 1},
			wantSizes: []int{1},
		},
		{
			name:      "empty table",
			records:   nil,
			threshold: 0.01,
			want:      map[string]int{},
			wantSizes: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractClusters(BuildSimilarityGraph(tt.records).Filter(tt.threshold))
			assert.Equal(t, tt.want, got.Samples)
			assert.Equal(t, tt.wantSizes, got.Sizes())
		})
	}
}

// randomRecords builds a reproducible sparse distance table over n samples.
func randomRecords(rng *rand.Rand, n, rows int) []DistanceRecord {
	records := make([]DistanceRecord, 0, rows)
	for i := 0; i < rows; i++ {
		a := fmt.Sprintf("S%03d", rng.Intn(n))
		b := fmt.Sprintf("S%03d", rng.Intn(n))
		records = append(records, DistanceRecord{SampleA: a, SampleB: b, Distance: rng.Float64() * 0.05})
	}
	return records
}

func TestExtractClusters_EverySampleOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	records := randomRecords(rng, 60, 200)

	samples := make(map[string]struct{})
	for _, r := range records {
		samples[r.SampleA] = struct{}{}
		samples[r.SampleB] = struct{}{}
	}

	got := ExtractClusters(BuildSimilarityGraph(records).Filter(0.01))
	require.Len(t, got.Samples, len(samples))

	seen := make(map[string]int)
	for id, members := range got.Clusters {
		for _, m := range members {
			seen[m]++
			assert.Equal(t, id+1, got.Samples[m])
		}
	}
	for s := range samples {
		assert.Equal(t, 1, seen[s], "sample %s must appear in exactly one cluster", s)
	}
	for i := 1; i < len(got.Clusters); i++ {
		assert.GreaterOrEqual(t, len(got.Clusters[i-1]), len(got.Clusters[i]), "clusters ordered by size")
	}
}

func TestExtractClusters_ThresholdMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	g := BuildSimilarityGraph(randomRecords(rng, 80, 150))

	thresholds := []float64{0, 0.005, 0.01, 0.02, 0.03, 0.05}
	prev := ExtractClusters(g.Filter(thresholds[0]))
	for _, th := range thresholds[1:] {
		next := ExtractClusters(g.Filter(th))
		assert.LessOrEqual(t, next.Len(), prev.Len(), "cluster count must not grow as threshold rises")

		// Samples together at the lower threshold stay together.
		for _, members := range prev.Clusters {
			for _, m := range members[1:] {
				assert.Equal(t, next.ClusterOf(members[0]), next.ClusterOf(m))
			}
		}
		prev = next
	}
}

func TestExtractClusters_RowPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	records := randomRecords(rng, 40, 120)
	// Drop duplicate pairs so last-write-wins cannot change weights when
	// rows are shuffled.
	unique := make([]DistanceRecord, 0, len(records))
	seen := make(map[EdgeKey]struct{})
	for _, r := range records {
		k := NewEdgeKey(r.SampleA, r.SampleB)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, r)
	}

	want := ExtractClusters(BuildSimilarityGraph(unique).Filter(0.01))
	for i := 0; i < 10; i++ {
		shuffled := append([]DistanceRecord(nil), unique...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		// Swap endpoints on half the rows.
		for j := range shuffled {
			if j%2 == 0 {
				shuffled[j].SampleA, shuffled[j].SampleB = shuffled[j].SampleB, shuffled[j].SampleA
			}
		}
		got := ExtractClusters(BuildSimilarityGraph(shuffled).Filter(0.01))
		assert.Equal(t, want, got)
	}
}

func TestSingleCluster(t *testing.T) {
	got := SingleCluster([]string{"S2", "S1", "S2"})
	assert.Equal(t, map[string]int{"S1": 1, "S2": 1}, got.Samples)
	assert.Equal(t, [][]string{{"S1", "S2"}}, got.Clusters)

	empty := SingleCluster(nil)
	assert.Zero(t, empty.Len())
}

func TestDisjointSet(t *testing.T) {
	ds := newDisjointSet(5)
	ds.union(0, 1)
	ds.union(3, 4)
	ds.union(1, 4)

	assert.Equal(t, ds.find(0), ds.find(3))
	assert.NotEqual(t, ds.find(0), ds.find(2))
	assert.Equal(t, 4, ds.size[ds.find(0)])
}
