package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Do once the engine no longer accepts events.
var ErrStopped = errors.New("engine stopped")

// PersistError reports a failed save. The in-memory state is unaffected.
type PersistError struct {
	// Seq is the sequence number of the last event included in the save.
	Seq int64

	// Err is the store error.
	Err error
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("persist snapshot (seq=%d): %v", e.Seq, e.Err)
}

// Unwrap returns the store error.
func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError reports whether err is a failed save.
// Uses errors.As to handle wrapped errors.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
