package domain

import (
	"slices"
)

// ClusterAssignment maps every sample to a positive cluster id. Cluster 1
// is the largest connected component.
type ClusterAssignment struct {
	// Samples maps sample name to cluster id.
	Samples map[string]int `json:"samples"`

	// Clusters lists members per cluster; Clusters[i] holds cluster i+1
	// with members sorted.
	Clusters [][]string `json:"clusters"`
}

// ClusterOf returns the cluster id of sample, or 0 when it is unknown.
func (c *ClusterAssignment) ClusterOf(sample string) int { return c.Samples[sample] }

// Len returns the number of clusters.
func (c *ClusterAssignment) Len() int { return len(c.Clusters) }

// Sizes returns the member count of each cluster in id order.
func (c *ClusterAssignment) Sizes() []int {
	sizes := make([]int, len(c.Clusters))
	for i, members := range c.Clusters {
		sizes[i] = len(members)
	}
	return sizes
}

// disjointSet is a union-find forest over dense integer ids with path
// halving and union by size.
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), size: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
		ds.size[i] = 1
	}
	return ds
}

func (ds *disjointSet) find(x int) int {
	for ds.parent[x] != x {
		ds.parent[x] = ds.parent[ds.parent[x]]
		x = ds.parent[x]
	}
	return x
}

func (ds *disjointSet) union(a, b int) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	if ds.size[ra] < ds.size[rb] {
		ra, rb = rb, ra
	}
	ds.parent[rb] = ra
	ds.size[ra] += ds.size[rb]
}

// ExtractClusters computes the connected components of g and numbers them
// from 1 by descending size. Components of equal size keep the order in
// which they are first met while walking the nodes in sorted order, so the
// result depends only on the graph and not on input row order.
func ExtractClusters(g *SimilarityGraph) *ClusterAssignment {
	nodes := slices.Clone(g.Nodes)
	slices.Sort(nodes)
	nodes = slices.Compact(nodes)

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	ds := newDisjointSet(len(nodes))
	for k := range g.Edges {
		a, okA := index[k.A]
		b, okB := index[k.B]
		if !okA || !okB {
			continue
		}
		ds.union(a, b)
	}

	// Walk nodes in sorted order; the first member of each root fixes the
	// component's discovery position.
	componentOf := make(map[int]int)
	components := make([][]string, 0)
	for i, n := range nodes {
		root := ds.find(i)
		c, ok := componentOf[root]
		if !ok {
			c = len(components)
			componentOf[root] = c
			components = append(components, nil)
		}
		components[c] = append(components[c], n)
	}

	slices.SortStableFunc(components, func(x, y []string) int {
		return len(y) - len(x)
	})

	out := &ClusterAssignment{
		Samples:  make(map[string]int, len(nodes)),
		Clusters: components,
	}
	for i, members := range components {
		for _, m := range members {
			out.Samples[m] = i + 1
		}
	}
	return out
}

// SingleCluster places every sample in cluster 1. It is used when
// clustering is switched off and all samples are analysed together.
func SingleCluster(samples []string) *ClusterAssignment {
	members := slices.Clone(samples)
	slices.Sort(members)
	members = slices.Compact(members)

	out := &ClusterAssignment{
		Samples:  make(map[string]int, len(members)),
		Clusters: make([][]string, 0, 1),
	}
	if len(members) == 0 {
		return out
	}
	out.Clusters = append(out.Clusters, members)
	for _, m := range members {
		out.Samples[m] = 1
	}
	return out
}
