package domain

import "fmt"

// RunStatus is the coarse lifecycle of a run.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "failed"
)

// Run tracks the position of one execution in its stage plan.
// The stage index only moves forward; done and failed are terminal.
type Run struct {
	ID     string
	State  *RunState
	Status RunStatus

	stages []string
	index  int
}

// NewRun creates a pending run over the given stage order.
func NewRun(id, userInput string, stages []string) *Run {
	return &Run{
		ID:     id,
		State:  NewRunState(userInput),
		Status: RunPending,
		stages: stages,
		index:  -1,
	}
}

// CurrentStage returns the stage being executed, or "" outside of a stage.
func (r *Run) CurrentStage() string {
	if r.Status != RunRunning || r.index < 0 || r.index >= len(r.stages) {
		return ""
	}
	return r.stages[r.index]
}

// Enter advances the run to the named stage, which must be the next one in order.
func (r *Run) Enter(stage string) error {
	if r.Status == RunDone || r.Status == RunFailed {
		return fmt.Errorf("%w: enter %s from %s", ErrInvalidTransition, stage, r.Status)
	}
	next := r.index + 1
	if next >= len(r.stages) || r.stages[next] != stage {
		return fmt.Errorf("%w: %s is not the next stage", ErrInvalidTransition, stage)
	}
	r.index = next
	r.Status = RunRunning
	return nil
}

// Complete marks the run done. All stages must have been entered.
func (r *Run) Complete() error {
	if r.Status != RunRunning || r.index != len(r.stages)-1 {
		return fmt.Errorf("%w: complete from %s at stage %d", ErrInvalidTransition, r.Status, r.index)
	}
	r.Status = RunDone
	return nil
}

// Fail marks the run failed from any non-terminal status.
func (r *Run) Fail() error {
	if r.Status == RunDone || r.Status == RunFailed {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, r.Status)
	}
	r.Status = RunFailed
	return nil
}
