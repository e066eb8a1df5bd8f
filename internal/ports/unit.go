// Package ports holds the interfaces shared by the application layer and
// the infrastructure adapters: workflow units, graph nodes, unit
// factories and the metrics sink.
package ports

import (
	"context"

	"github.com/ahrav/refclust/internal/domain"
)

// Unit is one step of a clustering or ranking workflow: it reads some keys
// of the state and returns a state extended with its results.
//
// Implementations keep no per-run state, so a single unit may be executed
// by several workflows at once.
type Unit interface {
	// Name returns the unit id used in logs, spans and metric labels.
	Name() string

	// Execute returns a new state; the input state is left untouched.
	// On failure the returned state is the input and the error names the
	// file or key that caused it. A cancelled ctx stops the unit before
	// it writes any output.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate reports configuration problems, such as a negative
	// threshold, before the workflow runs.
	Validate() error
}
