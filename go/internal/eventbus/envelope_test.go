package eventbus

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/placehub/go/internal/events"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	listingID := uuid.New()
	evt := events.NewPlaceReviewUpdatedEvent(listingID, 7, 4.2)

	data, err := WrapEvent(evt)
	require.NoError(t, err)

	env, err := OpenEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, evt.EventID().String(), env.EventID)
	require.Equal(t, events.TypePlaceReviewUpdated, env.EventTypeName)

	factory, ok := events.Catalog()[events.ShortTypeName(env.EventTypeName)]
	require.True(t, ok)

	decoded, err := env.DecodePayload(factory)
	require.NoError(t, err)

	got, ok := decoded.(*events.PlaceReviewUpdatedEvent)
	require.True(t, ok)
	require.Equal(t, evt.EventID(), got.EventID())
	require.Equal(t, listingID, got.ListingID)
	require.Equal(t, 7, got.ReviewCount)
	require.Equal(t, 4.2, got.AvgRating)
}

func TestEnvelopeQualifiedTypeNameResolvesByShortName(t *testing.T) {
	env := &Envelope{EventTypeName: "PlaceHub.Contracts.ListingVisited"}
	short := events.ShortTypeName(env.EventTypeName)
	require.Equal(t, events.TypeListingVisited, short)

	_, ok := events.Catalog()[short]
	require.True(t, ok)
}

func TestOpenEnvelopeRejectsMalformedData(t *testing.T) {
	_, err := OpenEnvelope([]byte("not json"))
	require.Error(t, err)
}
