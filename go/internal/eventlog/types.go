package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/placehub/go/internal/events"
)

// EventState tracks an entry through the publish state machine.
type EventState int

const (
	StateNotPublished EventState = iota
	StateInProgress
	StatePublished
	StatePublishedFailed
)

func (s EventState) String() string {
	switch s {
	case StateNotPublished:
		return "NotPublished"
	case StateInProgress:
		return "InProgress"
	case StatePublished:
		return "Published"
	case StatePublishedFailed:
		return "PublishedFailed"
	default:
		return fmt.Sprintf("EventState(%d)", int(s))
	}
}

// CanTransitionTo reports whether moving to next respects the forward-only
// state machine. Published is terminal; PublishedFailed may re-enter
// InProgress for redelivery.
func (s EventState) CanTransitionTo(next EventState) bool {
	switch s {
	case StateNotPublished:
		return next == StateInProgress
	case StateInProgress:
		return next == StatePublished || next == StatePublishedFailed
	case StatePublishedFailed:
		return next == StateInProgress
	default:
		return false
	}
}

// Entry is one outbox row: the durable record of a single integration event
// occurrence. Identity fields are immutable; only State and TimesSent ever
// change. Rows are never deleted by this subsystem, so the table doubles as
// an audit and replay log.
type Entry struct {
	EventID       uuid.UUID
	EventTypeName string
	Content       json.RawMessage
	State         EventState
	TimesSent     int
	CreationTime  time.Time
	TransactionID uuid.UUID

	// Event is the deserialized payload, populated on retrieval.
	Event events.Event
}

// ShortTypeName is the key used to resolve the concrete type on
// deserialization.
func (e *Entry) ShortTypeName() string { return events.ShortTypeName(e.EventTypeName) }

// NewEntry builds a NotPublished entry for evt bound to transactionID.
func NewEntry(evt events.Event, transactionID uuid.UUID) (*Entry, error) {
	content, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", evt.EventID(), err)
	}
	return &Entry{
		EventID:       evt.EventID(),
		EventTypeName: evt.EventType(),
		Content:       content,
		State:         StateNotPublished,
		TimesSent:     0,
		CreationTime:  evt.OccurredAt(),
		TransactionID: transactionID,
		Event:         evt,
	}, nil
}
