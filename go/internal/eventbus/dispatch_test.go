package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/placehub/go/internal/events"
)

// fakeMsg satisfies jetstream.Msg and records the acknowledgment outcome.
type fakeMsg struct {
	data    []byte
	subject string

	acked  bool
	naked  bool
	termed bool
}

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) { return &jetstream.MsgMetadata{}, nil }
func (m *fakeMsg) Data() []byte                              { return m.data }
func (m *fakeMsg) Headers() nats.Header                      { return nats.Header{} }
func (m *fakeMsg) Subject() string                           { return m.subject }
func (m *fakeMsg) Reply() string                             { return "" }
func (m *fakeMsg) Ack() error                                { m.acked = true; return nil }
func (m *fakeMsg) DoubleAck(ctx context.Context) error       { m.acked = true; return nil }
func (m *fakeMsg) Nak() error                                { m.naked = true; return nil }
func (m *fakeMsg) NakWithDelay(d time.Duration) error        { m.naked = true; return nil }
func (m *fakeMsg) InProgress() error                         { return nil }
func (m *fakeMsg) Term() error                               { m.termed = true; return nil }
func (m *fakeMsg) TermWithReason(reason string) error        { m.termed = true; return nil }

func testBus() *JetStreamBus {
	conn := NewPersistentConnection(DefaultConnectionConfig())
	return NewJetStreamBus(conn, NewSubscriptionRegistry(), DefaultConfig())
}

func wireMsg(t *testing.T, evt events.Event) *fakeMsg {
	t.Helper()
	data, err := WrapEvent(evt)
	require.NoError(t, err)
	return &fakeMsg{data: data, subject: "placehub.events." + evt.EventType()}
}

func TestDispatchAcksWhenAllHandlersSucceed(t *testing.T) {
	bus := testBus()

	var got []uuid.UUID
	handler := events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
		got = append(got, evt.EventID())
		return nil
	})
	bus.Subscribe(events.TypeListingVisited, "first",
		func() events.Event { return &events.ListingVisitedEvent{} }, handler)
	bus.Subscribe(events.TypeListingVisited, "second",
		func() events.Event { return &events.ListingVisitedEvent{} }, handler)

	evt := events.NewListingVisitedEvent(uuid.New(), "visitor-1", 3)
	msg := wireMsg(t, evt)
	bus.dispatch(context.Background(), msg)

	require.True(t, msg.acked)
	require.False(t, msg.naked)
	require.Equal(t, []uuid.UUID{evt.EventID(), evt.EventID()}, got)
}

func TestDispatchNaksOnHandlerError(t *testing.T) {
	bus := testBus()
	bus.Subscribe(events.TypeListingVisited, "failing",
		func() events.Event { return &events.ListingVisitedEvent{} },
		events.HandlerFunc(func(ctx context.Context, evt events.Event) error {
			return errors.New("downstream unavailable")
		}))

	msg := wireMsg(t, events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1))
	bus.dispatch(context.Background(), msg)

	require.True(t, msg.naked)
	require.False(t, msg.acked)
	require.False(t, msg.termed)
}

func TestDispatchTermsUnhandleableMessages(t *testing.T) {
	bus := testBus()

	// No subscriptions at all for this type.
	msg := wireMsg(t, events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1))
	bus.dispatch(context.Background(), msg)
	require.True(t, msg.termed)
	require.False(t, msg.naked)

	// Garbage that is not an envelope.
	bad := &fakeMsg{data: []byte("not an envelope"), subject: "placehub.events.ListingVisited"}
	bus.dispatch(context.Background(), bad)
	require.True(t, bad.termed)
}

func TestDispatchTermsUndecodablePayload(t *testing.T) {
	bus := testBus()
	bus.Subscribe(events.TypeListingVisited, "handler",
		func() events.Event { return &events.ListingVisitedEvent{} },
		events.HandlerFunc(func(ctx context.Context, evt events.Event) error { return nil }))

	msg := &fakeMsg{
		data: []byte(`{"event_id":"x","event_type_name":"ListingVisited","payload":[1,2,3]}`),
	}
	bus.dispatch(context.Background(), msg)
	require.True(t, msg.termed)
	require.False(t, msg.acked)
}
