package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned when a session already has a run in flight.
	ErrAlreadyRunning = errors.New("a run is already active for this session")

	// ErrSessionGone is returned when delivering to a connection that no longer exists.
	ErrSessionGone = errors.New("session is gone")

	// ErrUnknownSession is returned for messages addressed to an unregistered connection.
	ErrUnknownSession = errors.New("unknown session")

	// ErrSessionExists is returned when a connection id is registered twice.
	ErrSessionExists = errors.New("session already exists")

	// ErrEmptyMessage is returned for chat messages without content.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrFieldAlreadySet is returned when a stage update overwrites run state.
	ErrFieldAlreadySet = errors.New("run state field already written")

	// ErrInvalidTransition is returned when a run would move backwards or leave a terminal status.
	ErrInvalidTransition = errors.New("invalid run transition")
)

// StageError wraps any failure raised while a stage executes, including
// collaborator failures and state merge conflicts.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStageError returns true if err is or wraps a StageError.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}
