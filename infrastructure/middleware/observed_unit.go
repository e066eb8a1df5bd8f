package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

// UnitObserver receives notifications around a unit's execution.
type UnitObserver interface {
	// PreExecute is called before the wrapped unit runs. The returned
	// context is passed to the unit and to PostExecute.
	PreExecute(ctx context.Context, unitName string, state domain.State) context.Context

	// PostExecute is called after the wrapped unit returns, with the
	// unit's output state and error.
	PostExecute(ctx context.Context, unitName string, state domain.State, elapsed time.Duration, err error)
}

// ObservedUnit wraps a unit and reports each execution to an observer.
// It is transparent: the wrapped unit's name, output and error are passed
// through unchanged.
type ObservedUnit struct {
	next     ports.Unit
	observer UnitObserver
}

// NewObservedUnit wraps next. A nil observer makes the wrapper a no-op.
func NewObservedUnit(next ports.Unit, observer UnitObserver) *ObservedUnit {
	if next == nil {
		panic("observed unit: next unit is required")
	}
	return &ObservedUnit{next: next, observer: observer}
}

// Name returns the wrapped unit's name.
func (u *ObservedUnit) Name() string { return u.next.Name() }

// Unwrap returns the wrapped unit.
func (u *ObservedUnit) Unwrap() ports.Unit { return u.next }

// Execute runs the wrapped unit between the observer callbacks.
func (u *ObservedUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if u.observer == nil {
		return u.next.Execute(ctx, state)
	}

	ctx = u.observer.PreExecute(ctx, u.next.Name(), state)
	start := time.Now()
	newState, err := u.next.Execute(ctx, state)
	u.observer.PostExecute(ctx, u.next.Name(), newState, time.Since(start), err)

	return newState, err
}

// Validate validates the wrapped unit.
func (u *ObservedUnit) Validate() error {
	if u.next == nil {
		return fmt.Errorf("observed unit: next unit is required")
	}
	return u.next.Validate()
}

// Decorator returns a function wrapping units with observer, suitable for
// application.WithUnitDecorator.
func Decorator(observer UnitObserver) func(ports.Unit) ports.Unit {
	return func(u ports.Unit) ports.Unit {
		return NewObservedUnit(u, observer)
	}
}

var _ ports.Unit = (*ObservedUnit)(nil)
