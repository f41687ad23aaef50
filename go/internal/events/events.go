package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is the contract every integration event satisfies. An integration
// event is a fact that occurred in one service and is relevant to others,
// carried over the message broker.
type Event interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
}

// Base carries the identity fields every integration event shares. Concrete
// event types embed it and add their own payload fields.
type Base struct {
	ID       uuid.UUID `json:"id"`
	Occurred time.Time `json:"occurred_at"`
}

// NewBase stamps a fresh event identity. The producer-generated id is what
// lets consumers deduplicate redeliveries.
func NewBase() Base {
	return Base{
		ID:       uuid.New(),
		Occurred: time.Now().UTC(),
	}
}

func (b Base) EventID() uuid.UUID    { return b.ID }
func (b Base) OccurredAt() time.Time { return b.Occurred }

// Factory constructs an empty event of one concrete type, ready to be
// unmarshaled into. Factories are registered by name at startup; there is no
// runtime type scanning.
type Factory func() Event

// Handler processes one inbound integration event. Delivery is at-least-once,
// so Handle must be idempotent: handling the same event twice has to leave
// the same end state as handling it once.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) Handle(ctx context.Context, evt Event) error { return f(ctx, evt) }

// ShortTypeName returns the last dot-separated segment of an event type name.
// Local producers store unqualified names, but foreign producers may qualify
// theirs; resolution always matches on the short name.
func ShortTypeName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
