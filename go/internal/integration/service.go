package integration

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/placehub/go/internal/eventlog"
	"github.com/mcdev12/placehub/go/internal/events"
	"github.com/mcdev12/placehub/go/internal/sqlutil"
)

// Store is what the service needs from the outbox ledger.
type Store interface {
	SaveEvent(ctx context.Context, txn *sqlutil.Txn, evt events.Event) error
	RetrievePending(ctx context.Context, transactionID uuid.UUID) ([]*eventlog.Entry, error)
	MarkInProgress(ctx context.Context, eventID uuid.UUID) error
	MarkPublished(ctx context.Context, eventID uuid.UUID) error
	MarkFailed(ctx context.Context, eventID uuid.UUID) error
}

// Bus publishes one event to the broker.
type Bus interface {
	Publish(ctx context.Context, evt events.Event) error
}

// Service coordinates the commit-then-publish protocol for one business
// service. Events are saved inside the caller's transaction and published
// only after that transaction commits; a publish failure never propagates
// back to the request that already committed.
type Service struct {
	name  string // originating service, for traceability
	store Store
	bus   Bus
}

func NewService(name string, store Store, bus Bus) *Service {
	return &Service{name: name, store: store, bus: bus}
}

// SaveEvent records evt in the outbox inside txn, so the business rows and
// the outbox row commit or roll back together. Errors propagate: if the
// outbox insert fails, the business transaction must fail with it.
func (s *Service) SaveEvent(ctx context.Context, txn *sqlutil.Txn, evt events.Event) error {
	if err := s.store.SaveEvent(ctx, txn, evt); err != nil {
		return err
	}
	log.Info().
		Str("service", s.name).
		Str("event_id", evt.EventID().String()).
		Str("event_type", evt.EventType()).
		Str("transaction_id", txn.ID.String()).
		Msg("integration event saved")
	return nil
}

// PublishThroughEventBus drives one committed event through the outbox state
// machine: InProgress, then Published on success or PublishedFailed on any
// publish error. Publish errors are swallowed; the entry stays visible for
// out-of-band redelivery. Ledger errors (unknown event id, backward
// transition) do propagate — those are bugs, not broker weather.
func (s *Service) PublishThroughEventBus(ctx context.Context, evt events.Event) error {
	log.Info().
		Str("service", s.name).
		Str("event_id", evt.EventID().String()).
		Str("event_type", evt.EventType()).
		Msg("publishing integration event")

	if err := s.store.MarkInProgress(ctx, evt.EventID()); err != nil {
		log.Error().
			Err(err).
			Str("service", s.name).
			Str("event_id", evt.EventID().String()).
			Msg("failed to mark event in progress")
		return err
	}

	if err := s.bus.Publish(ctx, evt); err != nil {
		log.Error().
			Err(err).
			Str("service", s.name).
			Str("event_id", evt.EventID().String()).
			Msg("failed to publish integration event")
		if markErr := s.store.MarkFailed(ctx, evt.EventID()); markErr != nil {
			log.Error().
				Err(markErr).
				Str("service", s.name).
				Str("event_id", evt.EventID().String()).
				Msg("failed to mark event as failed")
			return markErr
		}
		return nil
	}

	if err := s.store.MarkPublished(ctx, evt.EventID()); err != nil {
		log.Error().
			Err(err).
			Str("service", s.name).
			Str("event_id", evt.EventID().String()).
			Msg("failed to mark event as published")
		return err
	}

	log.Info().
		Str("service", s.name).
		Str("event_id", evt.EventID().String()).
		Msg("integration event published")
	return nil
}

// PublishPendingThroughEventBus publishes every event saved under
// transactionID, in creation order. Call it strictly after the business
// transaction commits.
func (s *Service) PublishPendingThroughEventBus(ctx context.Context, transactionID uuid.UUID) error {
	entries, err := s.store.RetrievePending(ctx, transactionID)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := s.PublishThroughEventBus(ctx, entry.Event); err != nil {
			return err
		}
	}
	return nil
}
