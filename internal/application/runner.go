package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/logger"
	"github.com/ahrav/refclust/internal/ports"
)

// Runner executes compiled workflows. Each run gets a fresh execution ID
// stored in the state's ExecutionContext.
type Runner struct {
	log *logger.Logger
}

// NewRunner creates a runner that logs through l. A nil logger discards.
func NewRunner(l *logger.Logger) *Runner {
	if l == nil {
		l = logger.NewNop()
	}
	return &Runner{log: l}
}

// Run executes workflow with inputs as the initial state and returns the
// final state.
func (r *Runner) Run(ctx context.Context, workflow ports.Executable, inputs domain.State) (domain.State, error) {
	execCtx := domain.ExecutionContext{
		WorkflowID:  workflow.ID(),
		ExecutionID: uuid.NewString(),
	}
	log := r.log.With("workflow", execCtx.WorkflowID, "execution_id", execCtx.ExecutionID)

	state := inputs.WithExecutionContext(execCtx)
	log.Info("workflow started", "inputs", inputs.Keys())
	start := time.Now()

	out, err := workflow.Execute(ctx, state)
	if err != nil {
		log.Error("workflow failed", "duration", time.Since(start), "error", err)
		return out, err
	}

	log.Info("workflow finished", "duration", time.Since(start), "outputs", out.Keys())
	return out, nil
}
