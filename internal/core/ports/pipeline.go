// Package ports defines the interfaces between the pipeline core and its
// collaborators: stages, text generation, persistence and transport.
package ports

import (
	"context"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
)

// EmitFunc forwards one incremental fragment produced by a stage.
type EmitFunc func(fragment string) error

// Stage is one unit of the pipeline.
type Stage interface {
	// Name returns the unique identifier for this stage.
	Name() string
	// Run reads a snapshot of the run state and returns a partial update.
	// Streaming stages call emit for every fragment they produce.
	Run(ctx context.Context, state domain.RunState, emit EmitFunc) (domain.StateUpdate, error)
}

// PipelineExecutor starts runs of the pipeline.
type PipelineExecutor interface {
	// Start launches a run and returns its event sequence. The channel is
	// closed after a terminal event.
	Start(ctx context.Context, runID, userInput string) <-chan domain.Event
	// StageNames returns the stages in execution order.
	StageNames() []string
}
