package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/placehub/go/internal/eventlog"
	"github.com/mcdev12/placehub/go/internal/events"
	"github.com/mcdev12/placehub/go/internal/sqlutil"
)

type fakeStore struct {
	calls []string

	saveErr       error
	inProgressErr error
	publishedErr  error
	pending       []*eventlog.Entry
	pendingErr    error
}

func (f *fakeStore) SaveEvent(ctx context.Context, txn *sqlutil.Txn, evt events.Event) error {
	if txn == nil {
		return eventlog.ErrNilTransaction
	}
	f.calls = append(f.calls, "save:"+evt.EventID().String())
	return f.saveErr
}

func (f *fakeStore) RetrievePending(ctx context.Context, transactionID uuid.UUID) ([]*eventlog.Entry, error) {
	f.calls = append(f.calls, "retrieve:"+transactionID.String())
	return f.pending, f.pendingErr
}

func (f *fakeStore) MarkInProgress(ctx context.Context, eventID uuid.UUID) error {
	f.calls = append(f.calls, "in_progress:"+eventID.String())
	return f.inProgressErr
}

func (f *fakeStore) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	f.calls = append(f.calls, "published:"+eventID.String())
	return f.publishedErr
}

func (f *fakeStore) MarkFailed(ctx context.Context, eventID uuid.UUID) error {
	f.calls = append(f.calls, "failed:"+eventID.String())
	return nil
}

type fakeBus struct {
	published []uuid.UUID
	err       error
}

func (f *fakeBus) Publish(ctx context.Context, evt events.Event) error {
	f.published = append(f.published, evt.EventID())
	return f.err
}

func TestPublishThroughEventBusHappyPath(t *testing.T) {
	store := &fakeStore{}
	bus := &fakeBus{}
	svc := NewService("listing-api", store, bus)

	evt := events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1)
	require.NoError(t, svc.PublishThroughEventBus(context.Background(), evt))

	id := evt.EventID().String()
	require.Equal(t, []string{"in_progress:" + id, "published:" + id}, store.calls)
	require.Equal(t, []uuid.UUID{evt.EventID()}, bus.published)
}

func TestPublishThroughEventBusSwallowsBrokerFailure(t *testing.T) {
	store := &fakeStore{}
	bus := &fakeBus{err: errors.New("broker unreachable")}
	svc := NewService("listing-api", store, bus)

	evt := events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1)
	// The business transaction already committed, so a broker failure must
	// not surface as a request error. The entry stays PublishedFailed for
	// the redelivery listener.
	require.NoError(t, svc.PublishThroughEventBus(context.Background(), evt))

	id := evt.EventID().String()
	require.Equal(t, []string{"in_progress:" + id, "failed:" + id}, store.calls)
}

func TestPublishThroughEventBusPropagatesLedgerErrors(t *testing.T) {
	store := &fakeStore{inProgressErr: eventlog.ErrEntryNotFound}
	bus := &fakeBus{}
	svc := NewService("listing-api", store, bus)

	evt := events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1)
	err := svc.PublishThroughEventBus(context.Background(), evt)
	require.ErrorIs(t, err, eventlog.ErrEntryNotFound)
	require.Empty(t, bus.published)
}

func TestSaveEventRequiresTransaction(t *testing.T) {
	svc := NewService("listing-api", &fakeStore{}, &fakeBus{})

	evt := events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1)
	err := svc.SaveEvent(context.Background(), nil, evt)
	require.ErrorIs(t, err, eventlog.ErrNilTransaction)
}

func TestSaveEventRecordsInTransaction(t *testing.T) {
	store := &fakeStore{}
	svc := NewService("listing-api", store, &fakeBus{})

	txn := &sqlutil.Txn{ID: uuid.New()}
	evt := events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1)
	require.NoError(t, svc.SaveEvent(context.Background(), txn, evt))
	require.Equal(t, []string{"save:" + evt.EventID().String()}, store.calls)
}

func TestPublishPendingPreservesCreationOrder(t *testing.T) {
	first := events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1)
	second := events.NewPlaceStatusChangedToOpenEvent(uuid.New(), "place-1")

	txID := uuid.New()
	e1, err := eventlog.NewEntry(first, txID)
	require.NoError(t, err)
	e2, err := eventlog.NewEntry(second, txID)
	require.NoError(t, err)

	store := &fakeStore{pending: []*eventlog.Entry{e1, e2}}
	bus := &fakeBus{}
	svc := NewService("listing-api", store, bus)

	require.NoError(t, svc.PublishPendingThroughEventBus(context.Background(), txID))
	require.Equal(t, []uuid.UUID{first.EventID(), second.EventID()}, bus.published)
}
