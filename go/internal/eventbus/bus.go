package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/placehub/go/internal/events"
)

// Config holds JetStream bus settings.
type Config struct {
	StreamName      string
	SubjectPrefix   string
	ConsumerGroup   string // durable consumer name prefix, one group per service
	MaxDeliver      int
	AckWait         time.Duration
	MaxAckPending   int
	MaxAge          time.Duration
	DuplicateWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		StreamName:      "PLACEHUB_EVENTS",
		SubjectPrefix:   "placehub.events",
		ConsumerGroup:   "placehub",
		MaxDeliver:      5,
		AckWait:         30 * time.Second,
		MaxAckPending:   100,
		MaxAge:          7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Hour,
	}
}

// JetStreamBus bridges local publish/subscribe calls to the broker. It is
// the only component that touches the wire format. Publish does not retry:
// failures surface to the caller so the outbox can record PublishedFailed
// instead of retrying silently in place.
type JetStreamBus struct {
	conn     *PersistentConnection
	registry *SubscriptionRegistry
	cfg      Config

	mu       sync.Mutex
	streamUp bool
}

func NewJetStreamBus(conn *PersistentConnection, registry *SubscriptionRegistry, cfg Config) *JetStreamBus {
	return &JetStreamBus{conn: conn, registry: registry, cfg: cfg}
}

// Registry exposes the subscription registry shared with the outbox store's
// type resolution.
func (b *JetStreamBus) Registry() *SubscriptionRegistry { return b.registry }

func (b *JetStreamBus) subject(eventType string) string {
	return fmt.Sprintf("%s.%s", b.cfg.SubjectPrefix, eventType)
}

// Publish serializes evt and sends it to the durable stream, keyed by the
// producer-stamped event id so the broker's duplicate window can drop
// redundant sends. Synchronous: the broker acknowledgment is awaited.
func (b *JetStreamBus) Publish(ctx context.Context, evt events.Event) error {
	if err := b.conn.EnsureConnected(ctx); err != nil {
		return err
	}
	js, err := b.conn.Channel()
	if err != nil {
		return err
	}
	if err := b.ensureStream(ctx, js); err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	data, err := WrapEvent(evt)
	if err != nil {
		return err
	}

	subject := b.subject(evt.EventType())
	ack, err := js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{evt.EventType()},
			"Event-ID":   []string{evt.EventID().String()},
		},
	},
		jetstream.WithMsgID(evt.EventID().String()),
		jetstream.WithExpectStream(b.cfg.StreamName),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, evt.EventType(), err)
	}

	log.Info().
		Str("subject", subject).
		Str("event_id", evt.EventID().String()).
		Uint64("sequence", ack.Sequence).
		Str("stream", ack.Stream).
		Msg("published integration event")
	return nil
}

// Subscribe registers handler for eventType under handlerName and makes the
// type decodable. The durable consumer binding happens when the dispatch
// loop starts; until then the broker retains nothing for this process anyway.
func (b *JetStreamBus) Subscribe(eventType, handlerName string, f events.Factory, h events.Handler) {
	b.registry.RegisterType(eventType, f)
	b.registry.Subscribe(eventType, handlerName, h)
	log.Info().
		Str("event_type", eventType).
		Str("handler", handlerName).
		Msg("subscribed handler to integration event")
}

// Unsubscribe removes the handler registration.
func (b *JetStreamBus) Unsubscribe(eventType, handlerName string) {
	b.registry.Unsubscribe(eventType, handlerName)
}

// Start binds one durable filtered consumer per subscribed event type and
// runs the inbound dispatch loop until ctx is done.
func (b *JetStreamBus) Start(ctx context.Context) error {
	if err := b.conn.EnsureConnected(ctx); err != nil {
		return err
	}
	js, err := b.conn.Channel()
	if err != nil {
		return err
	}
	if err := b.ensureStream(ctx, js); err != nil {
		return err
	}
	stream, err := js.Stream(ctx, b.cfg.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	msgs := make(chan jetstream.Msg, b.cfg.MaxAckPending)
	var consumeCtxs []jetstream.ConsumeContext
	defer func() {
		for _, cc := range consumeCtxs {
			cc.Stop()
		}
	}()

	for _, eventType := range b.registry.SubscribedTypes() {
		consumer, err := b.ensureConsumer(ctx, stream, eventType)
		if err != nil {
			return err
		}
		cc, err := consumer.Consume(func(msg jetstream.Msg) {
			select {
			case msgs <- msg:
			case <-ctx.Done():
				_ = msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("start consumer for %s: %w", eventType, err)
		}
		consumeCtxs = append(consumeCtxs, cc)
	}

	log.Info().
		Int("consumers", len(consumeCtxs)).
		Str("stream", b.cfg.StreamName).
		Msg("event bus dispatch loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event bus dispatch loop shutting down")
			return nil
		case msg := <-msgs:
			b.dispatch(ctx, msg)
		}
	}
}

// dispatch routes one delivered message to every registered handler in
// order. All handlers succeeding acknowledges the message; any handler error
// negatively acknowledges it so the broker redelivers (at-least-once).
// Messages this process can never handle are terminated instead of cycling.
func (b *JetStreamBus) dispatch(ctx context.Context, msg jetstream.Msg) {
	env, err := OpenEnvelope(msg.Data())
	if err != nil {
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("malformed event envelope")
		_ = msg.Term()
		return
	}

	eventType := events.ShortTypeName(env.EventTypeName)
	regs := b.registry.HandlersFor(eventType)
	if len(regs) == 0 {
		log.Warn().Str("event_type", eventType).Msg("no subscriptions for event type")
		_ = msg.Term()
		return
	}
	factory, ok := b.registry.ResolveType(eventType)
	if !ok {
		log.Warn().Str("event_type", eventType).Msg("no factory registered for event type")
		_ = msg.Term()
		return
	}
	evt, err := env.DecodePayload(factory)
	if err != nil {
		log.Error().
			Err(err).
			Str("event_id", env.EventID).
			Str("event_type", eventType).
			Msg("failed to decode event payload")
		_ = msg.Term()
		return
	}

	for _, reg := range regs {
		if err := reg.Handler.Handle(ctx, evt); err != nil {
			log.Error().
				Err(err).
				Str("event_id", env.EventID).
				Str("event_type", eventType).
				Str("handler", reg.Name).
				Msg("handler failed, requeueing message")
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error().Err(nakErr).Msg("failed to NAK message")
			}
			return
		}
	}

	if err := msg.Ack(); err != nil {
		log.Error().Err(err).Str("event_id", env.EventID).Msg("failed to ACK message")
		return
	}
	log.Debug().
		Str("event_id", env.EventID).
		Str("event_type", eventType).
		Int("handlers", len(regs)).
		Msg("integration event dispatched")
}

// ensureStream creates or updates the durable stream once per process.
func (b *JetStreamBus) ensureStream(ctx context.Context, js jetstream.JetStream) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamUp {
		return nil
	}

	sc := jetstream.StreamConfig{
		Name:        b.cfg.StreamName,
		Description: "Integration event stream for the outbox pipeline",
		Subjects:    []string{fmt.Sprintf("%s.>", b.cfg.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      b.cfg.MaxAge,
		Storage:     jetstream.FileStorage,
		Duplicates:  b.cfg.DuplicateWindow,
	}

	stream, err := js.Stream(ctx, b.cfg.StreamName)
	if err != nil {
		if _, err = js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", b.cfg.StreamName).Msg("created JetStream stream")
	} else {
		info, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("get stream info: %w", err)
		}
		if info.Config.MaxAge != sc.MaxAge || info.Config.Duplicates != sc.Duplicates {
			if _, err = js.UpdateStream(ctx, sc); err != nil {
				return fmt.Errorf("update stream: %w", err)
			}
			log.Info().Str("stream", b.cfg.StreamName).Msg("updated JetStream stream")
		}
	}

	b.streamUp = true
	return nil
}

// ensureConsumer creates or gets the durable consumer bound to one event
// type's subject.
func (b *JetStreamBus) ensureConsumer(ctx context.Context, stream jetstream.Stream, eventType string) (jetstream.Consumer, error) {
	name := fmt.Sprintf("%s-%s", b.cfg.ConsumerGroup, eventType)
	cc := jetstream.ConsumerConfig{
		Name:          name,
		Durable:       name,
		Description:   fmt.Sprintf("%s subscription for %s", b.cfg.ConsumerGroup, eventType),
		FilterSubject: b.subject(eventType),
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    b.cfg.MaxDeliver,
		AckWait:       b.cfg.AckWait,
		MaxAckPending: b.cfg.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, name)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, cc)
		if err != nil {
			return nil, fmt.Errorf("create consumer %s: %w", name, err)
		}
		log.Info().Str("consumer", name).Str("event_type", eventType).Msg("created JetStream consumer")
	}
	return consumer, nil
}
