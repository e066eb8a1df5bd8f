package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

// ErrMergeConflict is returned when two members of a layer write different
// values under the same state key.
var ErrMergeConflict = errors.New("layer members wrote conflicting values")

// Pipeline is a sequential execution container that processes executables
// in strict order, where each executable's output becomes the input for
// the next executable in the sequence.
type Pipeline struct {
	id          string
	executables []ports.Executable
	// idSet tracks executable IDs for O(1) duplicate detection.
	idSet map[string]struct{}
	mu    sync.RWMutex
}

// NewPipeline creates an empty pipeline with the given identifier.
func NewPipeline(id string) *Pipeline {
	return &Pipeline{
		id:          id,
		executables: make([]ports.Executable, 0),
		idSet:       make(map[string]struct{}),
	}
}

// Execute runs the executables in order, handing each the previous output.
// It stops at the first failure, and between executables when ctx is done.
func (p *Pipeline) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	p.mu.RLock()
	executables := make([]ports.Executable, len(p.executables))
	copy(executables, p.executables)
	p.mu.RUnlock()

	currentState := state
	for _, exec := range executables {
		if err := ctx.Err(); err != nil {
			return currentState, err
		}
		newState, err := exec.Execute(ctx, currentState)
		if err != nil {
			return currentState, fmt.Errorf("pipeline %s: execution failed at %s: %w", p.id, exec.ID(), err)
		}
		currentState = newState
	}

	return currentState, nil
}

// ID returns the pipeline identifier.
func (p *Pipeline) ID() string {
	return p.id
}

// Add appends an executable to the end of the sequence.
// Add returns an error if the executable is nil or its ID is taken.
func (p *Pipeline) Add(exec ports.Executable) error {
	if exec == nil {
		return fmt.Errorf("cannot add nil executable to pipeline")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	execID := exec.ID()
	if _, exists := p.idSet[execID]; exists {
		return fmt.Errorf("executable with ID %s already exists in pipeline", execID)
	}

	p.executables = append(p.executables, exec)
	p.idSet[execID] = struct{}{}
	return nil
}

// Executables returns a copy of the sequence in execution order.
func (p *Pipeline) Executables() []ports.Executable {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ports.Executable, len(p.executables))
	copy(result, p.executables)
	return result
}

// Layer is a parallel execution container that runs independent
// executables concurrently against the same input state.
type Layer struct {
	id          string
	executables []ports.Executable
	idSet       map[string]struct{}
	// mergeStrategy combines member outputs. If nil, keyUnionMergeStrategy
	// is used.
	mergeStrategy ports.MergeStrategy
	// concurrencyLimit bounds concurrent members. Non-positive values mean
	// runtime.NumCPU() * 2.
	concurrencyLimit int
	mu               sync.RWMutex
}

// NewLayer creates an empty layer with the given identifier.
func NewLayer(id string) *Layer {
	return &Layer{
		id:               id,
		executables:      make([]ports.Executable, 0),
		idSet:            make(map[string]struct{}),
		concurrencyLimit: runtime.NumCPU() * 2,
	}
}

// Execute runs every member concurrently with the same input state and
// merges their outputs in declaration order, so the merged state does not
// depend on completion order. The first failure cancels the remaining
// members; every member error is reported.
func (l *Layer) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	l.mu.RLock()
	executables := make([]ports.Executable, len(l.executables))
	copy(executables, l.executables)
	limit := l.concurrencyLimit
	strategy := l.mergeStrategy
	l.mu.RUnlock()

	if limit <= 0 {
		limit = runtime.NumCPU() * 2
	}
	if len(executables) == 0 {
		return state, nil
	}

	states := make([]domain.State, len(executables))
	errs := make([]error, len(executables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, exec := range executables {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = fmt.Errorf("executable %s: %w", exec.ID(), err)
				return errs[i]
			}
			newState, err := exec.Execute(gctx, state)
			if err != nil {
				errs[i] = fmt.Errorf("executable %s: %w", exec.ID(), err)
				return errs[i]
			}
			states[i] = newState
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		failed := make([]error, 0, len(errs))
		for _, e := range errs {
			if e != nil {
				failed = append(failed, e)
			}
		}
		return state, fmt.Errorf("layer %s failed with %d errors: %w", l.id, len(failed), errors.Join(failed...))
	}

	if strategy == nil {
		strategy = keyUnionMergeStrategy{}
	}

	mergedState, err := strategy.Merge(state, states)
	if err != nil {
		return state, fmt.Errorf("layer %s: merge failed: %w", l.id, err)
	}

	return mergedState, nil
}

// ID returns the layer identifier.
func (l *Layer) ID() string {
	return l.id
}

// Add includes an executable in the layer.
// Add returns an error if the executable is nil or its ID is taken.
func (l *Layer) Add(exec ports.Executable) error {
	if exec == nil {
		return fmt.Errorf("cannot add nil executable to layer")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	execID := exec.ID()
	if _, exists := l.idSet[execID]; exists {
		return fmt.Errorf("executable with ID %s already exists in layer", execID)
	}

	l.executables = append(l.executables, exec)
	l.idSet[execID] = struct{}{}
	return nil
}

// Executables returns a copy of the members in declaration order.
func (l *Layer) Executables() []ports.Executable {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]ports.Executable, len(l.executables))
	copy(result, l.executables)
	return result
}

// SetMergeStrategy replaces the default key-union merge.
func (l *Layer) SetMergeStrategy(strategy ports.MergeStrategy) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.mergeStrategy = strategy
}

// SetConcurrencyLimit bounds how many members run at once.
// Non-positive values restore the default of runtime.NumCPU() * 2.
func (l *Layer) SetConcurrencyLimit(limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.concurrencyLimit = limit
}

// Graph is a directed acyclic graph of executables. Executing the graph
// runs its nodes one at a time in topological order.
type Graph struct {
	id    string
	nodes map[string]ports.Executable
	// edges is the adjacency list: node ID -> dependent node IDs.
	edges map[string][]string
	// edgeSet provides O(1) duplicate edge detection, keyed "from->to".
	edgeSet  map[string]struct{}
	inDegree map[string]int
	mu       sync.RWMutex
}

// NewGraph creates an empty graph. id names the graph in errors and is
// usually the workflow name.
func NewGraph(id string) *Graph {
	return &Graph{
		id:       id,
		nodes:    make(map[string]ports.Executable),
		edges:    make(map[string][]string),
		edgeSet:  make(map[string]struct{}),
		inDegree: make(map[string]int),
	}
}

// ID returns the graph identifier.
func (g *Graph) ID() string {
	return g.id
}

// Execute runs every node in topological order, threading the state from
// one node to the next. Nodes without an ordering between them run in ID
// order, so repeated executions visit nodes identically.
func (g *Graph) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return state, err
	}

	current := state
	for _, node := range order {
		if err := ctx.Err(); err != nil {
			return current, err
		}
		next, err := node.Execute(ctx, current)
		if err != nil {
			return current, fmt.Errorf("workflow %s: node %s: %w", g.id, node.ID(), err)
		}
		current = next
	}
	return current, nil
}

// AddNode registers an executable as a node.
// AddNode returns an error if the executable is nil or its ID is taken.
func (g *Graph) AddNode(exec ports.Executable) error {
	if exec == nil {
		return fmt.Errorf("cannot add nil executable to graph")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := exec.ID()
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("node with ID %s already exists in graph", id)
	}

	g.nodes[id] = exec
	g.edges[id] = make([]string, 0)
	g.inDegree[id] = 0

	return nil
}

// AddEdge makes targetID run after sourceID. The edge is rolled back if
// it would create a cycle.
func (g *Graph) AddEdge(sourceID, targetID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[sourceID]; !exists {
		return fmt.Errorf("source node %s does not exist", sourceID)
	}
	if _, exists := g.nodes[targetID]; !exists {
		return fmt.Errorf("target node %s does not exist", targetID)
	}

	edgeKey := sourceID + "->" + targetID
	if _, exists := g.edgeSet[edgeKey]; exists {
		return fmt.Errorf("edge from %s to %s already exists", sourceID, targetID)
	}

	g.edges[sourceID] = append(g.edges[sourceID], targetID)
	g.edgeSet[edgeKey] = struct{}{}
	g.inDegree[targetID]++

	if g.hasCycleUnsafe() {
		g.edges[sourceID] = g.edges[sourceID][:len(g.edges[sourceID])-1]
		delete(g.edgeSet, edgeKey)
		g.inDegree[targetID]--
		return fmt.Errorf("adding edge from %s to %s would create a cycle", sourceID, targetID)
	}

	return nil
}

// TopologicalSort orders nodes so that dependencies precede dependents,
// using Kahn's algorithm with the ready set kept sorted by ID.
func (g *Graph) TopologicalSort() ([]ports.Executable, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegreeCopy := make(map[string]int, len(g.inDegree))
	ready := make([]string, 0)
	for id, degree := range g.inDegree {
		inDegreeCopy[id] = degree
		if degree == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	result := make([]ports.Executable, 0, len(g.nodes))
	for len(ready) > 0 {
		nodeID := ready[0]
		ready = ready[1:]
		result = append(result, g.nodes[nodeID])

		released := false
		for _, neighbor := range g.edges[nodeID] {
			inDegreeCopy[neighbor]--
			if inDegreeCopy[neighbor] == 0 {
				ready = append(ready, neighbor)
				released = true
			}
		}
		if released {
			slices.Sort(ready)
		}
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("graph contains a cycle")
	}

	return result, nil
}

// HasCycle reports whether the graph contains a cycle.
func (g *Graph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.hasCycleUnsafe()
}

// hasCycleUnsafe runs a three-color DFS. The caller must hold g.mu.
func (g *Graph) hasCycleUnsafe() bool {
	const (
		white = iota
		gray
		black
	)
	colors := make(map[string]int, len(g.nodes))

	var dfs func(nodeID string) bool
	dfs = func(nodeID string) bool {
		colors[nodeID] = gray
		for _, neighbor := range g.edges[nodeID] {
			if colors[neighbor] == gray {
				return true
			}
			if colors[neighbor] == white && dfs(neighbor) {
				return true
			}
		}
		colors[nodeID] = black
		return false
	}

	for id := range g.nodes {
		if colors[id] == white && dfs(id) {
			return true
		}
	}

	return false
}

// GetNode retrieves a node by ID.
func (g *Graph) GetNode(id string) (ports.Executable, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	exec, exists := g.nodes[id]
	return exec, exists
}

// keyUnionMergeStrategy folds into the base state every key a member added
// or changed. Members are visited in declaration order. Two members writing
// different values under the same key is a conflict.
type keyUnionMergeStrategy struct{}

// Merge implements ports.MergeStrategy.
func (keyUnionMergeStrategy) Merge(baseState domain.State, states []domain.State) (domain.State, error) {
	if len(states) == 0 {
		return baseState, nil
	}

	updates := make(map[string]any)
	for _, st := range states {
		for _, key := range st.Keys() {
			value, _ := st.GetRaw(key)
			if base, ok := baseState.GetRaw(key); ok && reflect.DeepEqual(base, value) {
				continue
			}
			if prev, seen := updates[key]; seen && !reflect.DeepEqual(prev, value) {
				return baseState, fmt.Errorf("%w: key %s", ErrMergeConflict, key)
			}
			updates[key] = value
		}
	}

	if len(updates) == 0 {
		return baseState, nil
	}
	return baseState.WithMultiple(updates), nil
}
