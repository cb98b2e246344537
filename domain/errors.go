package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a requested session is missing.
var ErrNotFound = errors.New("session not found")

// ErrSessionEnded indicates an event arrived for a session that already
// processed a terminating action.
var ErrSessionEnded = errors.New("session already ended")

// ValidationError rejects a malformed event before it touches storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a storage failure. The event is considered
// not-applied; callers decide whether to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
