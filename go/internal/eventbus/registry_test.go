package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mcdev12/placehub/go/internal/events"
)

func noopHandler() events.Handler {
	return events.HandlerFunc(func(ctx context.Context, evt events.Event) error { return nil })
}

func TestRegistryTypeResolution(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.RegisterType(events.TypeListingVisited, func() events.Event { return &events.ListingVisitedEvent{} })

	f, ok := r.ResolveType(events.TypeListingVisited)
	require.True(t, ok)
	require.Equal(t, events.TypeListingVisited, f().EventType())

	_, ok = r.ResolveType("SomethingElse")
	require.False(t, ok)
}

func TestRegistrySubscribeIsIdempotentPerName(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Subscribe(events.TypeListingVisited, "visit-tracking", noopHandler())
	r.Subscribe(events.TypeListingVisited, "visit-tracking", noopHandler())
	require.Len(t, r.HandlersFor(events.TypeListingVisited), 1)

	r.Subscribe(events.TypeListingVisited, "other-handler", noopHandler())
	require.Len(t, r.HandlersFor(events.TypeListingVisited), 2)
}

func TestRegistryUnsubscribe(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Subscribe(events.TypeListingVisited, "visit-tracking", noopHandler())
	require.True(t, r.HasSubscriptionsFor(events.TypeListingVisited))

	r.Unsubscribe(events.TypeListingVisited, "visit-tracking")
	require.False(t, r.HasSubscriptionsFor(events.TypeListingVisited))
	require.Empty(t, r.HandlersFor(events.TypeListingVisited))

	// unsubscribing a handler that was never registered is a no-op
	r.Unsubscribe(events.TypeListingVisited, "visit-tracking")
}

func TestRegistrySubscribedTypesSorted(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Subscribe(events.TypePlaceReviewUpdated, "a", noopHandler())
	r.Subscribe(events.TypeListingVisited, "b", noopHandler())
	r.Subscribe(events.TypeListingImageUploaded, "c", noopHandler())

	require.Equal(t, []string{
		events.TypeListingImageUploaded,
		events.TypeListingVisited,
		events.TypePlaceReviewUpdated,
	}, r.SubscribedTypes())
}
