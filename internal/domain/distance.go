package domain

import (
	"path/filepath"
	"slices"
	"strings"
)

// DistanceRecord is one row of a pairwise distance table. SampleA and
// SampleB hold normalised sample names (see SampleName), not raw paths.
type DistanceRecord struct {
	// SampleA is the query sample.
	SampleA string `json:"sample_a"`

	// SampleB is the reference sample.
	SampleB string `json:"sample_b"`

	// Distance is the Mash distance between the two samples.
	Distance float64 `json:"distance"`

	// PValue is carried through from the Mash output for reporting only.
	PValue float64 `json:"p_value"`

	// Matches is the shared-hashes column, e.g. "950/1000".
	Matches string `json:"matches"`

	// Row is the 1-based line the record was read from, 0 when synthetic.
	Row int `json:"row"`
}

// SelfPair reports whether both endpoints name the same sample.
func (r DistanceRecord) SelfPair() bool { return r.SampleA == r.SampleB }

// SampleName derives a sample identifier from a file path by dropping the
// directory and the final extension, so "run1/S01.fasta" and
// "/data/S01.fasta" both become "S01". A name that is only an extension,
// such as ".hidden", is kept whole.
func SampleName(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return base
	}
	return strings.TrimSuffix(base, ext)
}

// EdgeKey identifies an undirected edge. A is always the lexicographically
// smaller endpoint so (A,B) and (B,A) resolve to the same key.
type EdgeKey struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewEdgeKey returns the canonical key for the unordered pair a, b.
func NewEdgeKey(a, b string) EdgeKey {
	if b < a {
		a, b = b, a
	}
	return EdgeKey{A: a, B: b}
}

// Edge is an undirected weighted edge.
type Edge struct {
	EdgeKey
	Distance float64 `json:"distance"`
}

// SimilarityGraph is an undirected graph of samples weighted by distance.
// Nodes is kept sorted and duplicate free; Edges holds at most one weight
// per unordered pair and never a self-loop.
type SimilarityGraph struct {
	Nodes []string            `json:"nodes"`
	Edges map[EdgeKey]float64 `json:"edges"`
}

// NewSimilarityGraph returns an empty graph.
func NewSimilarityGraph() *SimilarityGraph {
	return &SimilarityGraph{
		Nodes: make([]string, 0),
		Edges: make(map[EdgeKey]float64),
	}
}

// BuildSimilarityGraph turns distance rows into a graph. Every sample named
// by a row becomes a node, including samples that only occur in self-pairs;
// self-pairs themselves contribute no edge. When the same unordered pair
// occurs more than once the last row wins.
func BuildSimilarityGraph(records []DistanceRecord) *SimilarityGraph {
	g := NewSimilarityGraph()
	seen := make(map[string]struct{}, len(records))
	addNode := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		g.Nodes = append(g.Nodes, name)
	}

	for _, rec := range records {
		addNode(rec.SampleA)
		addNode(rec.SampleB)
		if rec.SelfPair() {
			continue
		}
		g.Edges[NewEdgeKey(rec.SampleA, rec.SampleB)] = rec.Distance
	}

	slices.Sort(g.Nodes)
	return g
}

// NodeCount returns the number of samples in the graph.
func (g *SimilarityGraph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of undirected edges.
func (g *SimilarityGraph) EdgeCount() int { return len(g.Edges) }

// Distance returns the weight of the edge between a and b, if any.
func (g *SimilarityGraph) Distance(a, b string) (float64, bool) {
	d, ok := g.Edges[NewEdgeKey(a, b)]
	return d, ok
}

// SortedEdges returns all edges ordered by endpoint names.
func (g *SimilarityGraph) SortedEdges() []Edge {
	edges := make([]Edge, 0, len(g.Edges))
	for k, d := range g.Edges {
		edges = append(edges, Edge{EdgeKey: k, Distance: d})
	}
	slices.SortFunc(edges, func(x, y Edge) int {
		if c := strings.Compare(x.A, y.A); c != 0 {
			return c
		}
		return strings.Compare(x.B, y.B)
	})
	return edges
}

// Filter returns a copy of the graph without edges whose distance exceeds
// threshold. Nodes are never removed, so samples left without edges remain
// in the graph as isolated nodes.
func (g *SimilarityGraph) Filter(threshold float64) *SimilarityGraph {
	out := &SimilarityGraph{
		Nodes: slices.Clone(g.Nodes),
		Edges: make(map[EdgeKey]float64, len(g.Edges)),
	}
	if out.Nodes == nil {
		out.Nodes = make([]string, 0)
	}
	for k, d := range g.Edges {
		if d > threshold {
			continue
		}
		out.Edges[k] = d
	}
	return out
}
