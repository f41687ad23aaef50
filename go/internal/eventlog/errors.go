package eventlog

import (
	"errors"
	"fmt"
)

var (
	// ErrNilTransaction means SaveEvent was called without an open
	// transaction. Always a caller bug, never retried.
	ErrNilTransaction = errors.New("eventlog: transaction is required")

	// ErrEntryNotFound means no entry exists for the given event id.
	ErrEntryNotFound = errors.New("eventlog: entry not found")

	// ErrInvalidTransition means the requested state change would move an
	// entry backwards through the state machine.
	ErrInvalidTransition = errors.New("eventlog: invalid state transition")
)

// TypeResolutionError reports an event type name with no registered factory.
// The entry stays undelivered until the type is registered; this needs a
// code-level fix, not a retry.
type TypeResolutionError struct {
	TypeName string
}

func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("eventlog: no registered event type for %q", e.TypeName)
}
