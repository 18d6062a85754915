package domain

import (
	"fmt"
	"time"
)

// Stage names of the default pipeline. They double as the `node` values of the
// external event lexicon.
const (
	StageAnalyzer  = "analyzer"
	StageGenerator = "generator"
	StageSaver     = "saver"
)

// DefaultStageNames lists the default pipeline stages in execution order.
var DefaultStageNames = []string{StageAnalyzer, StageGenerator, StageSaver}

// RecordPayload is what the persistence stage hands to the store.
type RecordPayload struct {
	UserInput string `json:"user_input"`
	Analysis  string `json:"analysis"`
	Response  string `json:"response"`
}

// Record is a persisted pipeline result. The store assigns ID and CreatedAt.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserInput string    `json:"user_input"`
	Analysis  string    `json:"analysis"`
	Response  string    `json:"response"`
}

// Fragment is one element of a text-generation stream. A fragment with a
// non-nil Err terminates the stream.
type Fragment struct {
	Content string
	Err     error
}

// RunState is the record threaded through the stages of one run.
// Every field except UserInput is written at most once, by its owning stage.
type RunState struct {
	UserInput   string  `json:"user_input"`
	Analysis    *string `json:"analysis,omitempty"`
	Response    *string `json:"response,omitempty"`
	SavedRecord *Record `json:"saved_record,omitempty"`
}

// NewRunState creates the initial state for a run.
func NewRunState(userInput string) *RunState {
	return &RunState{UserInput: userInput}
}

// StateUpdate is the partial result returned by a stage.
type StateUpdate struct {
	Analysis    *string
	Response    *string
	SavedRecord *Record
}

// IsEmpty reports whether the update writes no field.
func (u StateUpdate) IsEmpty() bool {
	return u.Analysis == nil && u.Response == nil && u.SavedRecord == nil
}

// Merge applies u to the state. Writing a field that already holds a value
// fails with ErrFieldAlreadySet and leaves the state untouched.
func (s *RunState) Merge(u StateUpdate) error {
	if u.Analysis != nil && s.Analysis != nil {
		return fmt.Errorf("%w: analysis", ErrFieldAlreadySet)
	}
	if u.Response != nil && s.Response != nil {
		return fmt.Errorf("%w: response", ErrFieldAlreadySet)
	}
	if u.SavedRecord != nil && s.SavedRecord != nil {
		return fmt.Errorf("%w: saved_record", ErrFieldAlreadySet)
	}

	if u.Analysis != nil {
		v := *u.Analysis
		s.Analysis = &v
	}
	if u.Response != nil {
		v := *u.Response
		s.Response = &v
	}
	if u.SavedRecord != nil {
		rec := *u.SavedRecord
		s.SavedRecord = &rec
	}
	return nil
}

// Snapshot returns a deep copy that stages and consumers may hold without
// affecting the run.
func (s *RunState) Snapshot() RunState {
	out := RunState{UserInput: s.UserInput}
	if s.Analysis != nil {
		v := *s.Analysis
		out.Analysis = &v
	}
	if s.Response != nil {
		v := *s.Response
		out.Response = &v
	}
	if s.SavedRecord != nil {
		rec := *s.SavedRecord
		out.SavedRecord = &rec
	}
	return out
}

// AnalysisText returns the analysis or "" when it has not been written yet.
func (s RunState) AnalysisText() string {
	if s.Analysis == nil {
		return ""
	}
	return *s.Analysis
}

// ResponseText returns the response or "" when it has not been written yet.
func (s RunState) ResponseText() string {
	if s.Response == nil {
		return ""
	}
	return *s.Response
}

// StringPtr is a helper for building updates.
func StringPtr(s string) *string {
	return &s
}
