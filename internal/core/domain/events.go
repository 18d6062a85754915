package domain

// EventType identifies an internal execution event produced by the executor.
type EventType string

const (
	EventStageEntered     EventType = "stage.entered"
	EventStageExited      EventType = "stage.exited"
	EventFragmentProduced EventType = "stage.fragment"
	EventStageFailed      EventType = "stage.failed"
	EventRunCompleted     EventType = "run.completed"
)

// Event is an internal signal describing run progress.
// Stage is set for every type except EventRunCompleted.
type Event struct {
	Type  EventType
	RunID string
	Stage string

	// Fragment is set for EventFragmentProduced.
	Fragment string

	// State is a snapshot taken after the merge, set for EventStageExited and
	// EventRunCompleted.
	State *RunState

	// Err is set for EventStageFailed.
	Err error
}

// IsTerminal reports whether no event may follow this one.
func (e Event) IsTerminal() bool {
	return e.Type == EventStageFailed || e.Type == EventRunCompleted
}

// StageEntered builds an EventStageEntered.
func StageEntered(runID, stage string) Event {
	return Event{Type: EventStageEntered, RunID: runID, Stage: stage}
}

// StageExited builds an EventStageExited carrying a state snapshot.
func StageExited(runID, stage string, state RunState) Event {
	return Event{Type: EventStageExited, RunID: runID, Stage: stage, State: &state}
}

// FragmentProduced builds an EventFragmentProduced.
func FragmentProduced(runID, stage, fragment string) Event {
	return Event{Type: EventFragmentProduced, RunID: runID, Stage: stage, Fragment: fragment}
}

// StageFailed builds an EventStageFailed.
func StageFailed(runID, stage string, err error) Event {
	return Event{Type: EventStageFailed, RunID: runID, Stage: stage, Err: err}
}

// RunCompleted builds an EventRunCompleted.
func RunCompleted(runID string, state RunState) Event {
	return Event{Type: EventRunCompleted, RunID: runID, State: &state}
}
