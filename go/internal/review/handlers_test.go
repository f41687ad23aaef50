package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/placehub/go/internal/events"
)

type fakeVisitRecorder struct {
	visits map[uuid.UUID]uuid.UUID
}

func (f *fakeVisitRecorder) RecordVisit(ctx context.Context, eventID, listingID uuid.UUID, visitedAt time.Time) error {
	if f.visits == nil {
		f.visits = make(map[uuid.UUID]uuid.UUID)
	}
	// mirrors the ON CONFLICT (event_id) DO NOTHING insert
	if _, seen := f.visits[eventID]; seen {
		return nil
	}
	f.visits[eventID] = listingID
	return nil
}

func TestListingVisitedHandlerIsIdempotent(t *testing.T) {
	recorder := &fakeVisitRecorder{}
	handler := NewListingVisitedHandler(recorder)

	evt := events.NewListingVisitedEvent(uuid.New(), "visitor-1", 1)
	require.NoError(t, handler.Handle(context.Background(), evt))
	require.NoError(t, handler.Handle(context.Background(), evt))
	require.Len(t, recorder.visits, 1)
	require.Equal(t, evt.ListingID, recorder.visits[evt.EventID()])
}

func TestListingVisitedHandlerRejectsWrongEventType(t *testing.T) {
	handler := NewListingVisitedHandler(&fakeVisitRecorder{})
	err := handler.Handle(context.Background(), events.NewPlaceStatusChangedToOpenEvent(uuid.New(), "place-1"))
	require.Error(t, err)
}
