package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrStopped is returned for commands submitted after the engine stopped
	// or still queued when it stopped.
	ErrStopped = errors.New("engine stopped")

	// ErrEntryNotFound is returned when a command names an unknown Entry.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the Entry's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PersistError reports that a command was applied in memory but the log
// could not be saved. The mutation is kept and retried on the next save.
type PersistError struct {
	// Op names the command whose save failed.
	Op string

	// Seq is the command's sequence number.
	Seq int64

	Err error
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("persist after %s (seq=%d): %v", e.Op, e.Seq, e.Err)
}

// Unwrap returns the underlying store error.
func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError reports whether err is or wraps a *PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
