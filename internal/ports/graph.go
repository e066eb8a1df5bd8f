package ports

import (
	"context"

	"github.com/ahrav/refclust/internal/domain"
)

// MergeStrategy combines the states produced by the members of a parallel
// layer into the state handed to the next node.
type MergeStrategy interface {
	// Merge folds states into baseState. states arrive in the layer's
	// declaration order, never in completion order, so an implementation
	// that is deterministic over its inputs yields reproducible workflows.
	// Input states must not be modified.
	Merge(baseState domain.State, states []domain.State) (domain.State, error)
}

// Executable is anything that can run as a node of a workflow graph:
// a wrapped unit, a pipeline or a layer.
type Executable interface {
	// Execute processes state and returns the updated state.
	//
	// The input state is immutable and MUST NOT be modified; use
	// domain.With or State.WithMultiple to derive a new one. Layers hand
	// the same state instance to several executables concurrently.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// ID returns the identifier of this node, unique within its graph.
	ID() string
}

// Pipeline runs executables one after another, feeding each the previous
// output state.
type Pipeline interface {
	Executable

	// Add appends exec to the end of the sequence. It fails on a nil
	// executable or a duplicate ID.
	Add(exec Executable) error

	// Executables returns a copy of the sequence in execution order.
	Executables() []Executable
}

// Layer runs independent executables concurrently against the same input
// state and merges their outputs.
type Layer interface {
	Executable

	// Add includes exec in the layer. It fails on a nil executable or a
	// duplicate ID.
	Add(exec Executable) error

	// Executables returns a copy of the members in declaration order.
	Executables() []Executable

	// SetMergeStrategy replaces the default key-union merge.
	SetMergeStrategy(strategy MergeStrategy)

	// SetConcurrencyLimit bounds how many members run at once.
	SetConcurrencyLimit(limit int)
}

// Graph is a directed acyclic graph of executables. An edge from A to B
// means B runs after A and sees A's output.
type Graph interface {
	Executable

	// AddNode registers exec as a node. Its ID must be unique.
	AddNode(exec Executable) error

	// AddEdge makes targetID depend on sourceID. It fails when either
	// node is unknown, the edge exists, or the edge would close a cycle.
	AddEdge(sourceID, targetID string) error

	// TopologicalSort returns nodes so that every dependency precedes its
	// dependents. Nodes that are not ordered relative to each other come
	// out sorted by ID.
	TopologicalSort() ([]Executable, error)

	// HasCycle reports whether the graph contains a cycle.
	HasCycle() bool

	// GetNode retrieves a node by ID. The returned executable is the
	// instance held by the graph and must be treated as read-only.
	GetNode(id string) (Executable, bool)
}
