package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/placehub/go/internal/events"
)

// Envelope is the broker wire format. The outer fields let any consumer
// route and deduplicate without knowing the payload type; the payload is the
// JSON-serialized concrete event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventTypeName string          `json:"event_type_name"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// WrapEvent serializes evt into its wire envelope.
func WrapEvent(evt events.Event) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", evt.EventType(), err)
	}
	data, err := json.Marshal(Envelope{
		EventID:       evt.EventID().String(),
		EventTypeName: evt.EventType(),
		OccurredAt:    evt.OccurredAt(),
		Payload:       payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", evt.EventType(), err)
	}
	return data, nil
}

// OpenEnvelope decodes the outer envelope without touching the payload.
func OpenEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	return &env, nil
}

// DecodePayload materializes the concrete event through its factory.
func (e *Envelope) DecodePayload(f events.Factory) (events.Event, error) {
	evt := f()
	if err := json.Unmarshal(e.Payload, evt); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", e.EventTypeName, err)
	}
	return evt, nil
}
