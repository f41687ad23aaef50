package eventlog

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/placehub/go/internal/events"
)

func TestEventStateTransitions(t *testing.T) {
	cases := []struct {
		from, to EventState
		allowed  bool
	}{
		{StateNotPublished, StateInProgress, true},
		{StateNotPublished, StatePublished, false},
		{StateNotPublished, StatePublishedFailed, false},
		{StateInProgress, StatePublished, true},
		{StateInProgress, StatePublishedFailed, true},
		{StateInProgress, StateNotPublished, false},
		{StatePublishedFailed, StateInProgress, true},
		{StatePublishedFailed, StatePublished, false},
		{StatePublished, StateInProgress, false},
		{StatePublished, StatePublishedFailed, false},
		{StatePublished, StateNotPublished, false},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"_to_"+tc.to.String(), func(t *testing.T) {
			require.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestNewEntry(t *testing.T) {
	listingID := uuid.New()
	txID := uuid.New()
	evt := events.NewListingVisitedEvent(listingID, "visitor-1", 5)

	entry, err := NewEntry(evt, txID)
	require.NoError(t, err)
	require.Equal(t, evt.EventID(), entry.EventID)
	require.Equal(t, events.TypeListingVisited, entry.EventTypeName)
	require.Equal(t, StateNotPublished, entry.State)
	require.Zero(t, entry.TimesSent)
	require.Equal(t, txID, entry.TransactionID)
	require.Equal(t, evt.OccurredAt(), entry.CreationTime)
	require.Same(t, evt, entry.Event)

	var decoded events.ListingVisitedEvent
	require.NoError(t, json.Unmarshal(entry.Content, &decoded))
	require.Equal(t, listingID, decoded.ListingID)
	require.Equal(t, 5, decoded.Visits)
}

func TestEntryShortTypeName(t *testing.T) {
	entry := &Entry{EventTypeName: "PlaceHub.Contracts.ListingVisited"}
	require.Equal(t, "ListingVisited", entry.ShortTypeName())

	entry.EventTypeName = "ListingVisited"
	require.Equal(t, "ListingVisited", entry.ShortTypeName())
}
