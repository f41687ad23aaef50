package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortTypeName(t *testing.T) {
	require.Equal(t, "ListingVisited", ShortTypeName("PlaceHub.Contracts.ListingVisited"))
	require.Equal(t, "ListingVisited", ShortTypeName("ListingVisited"))
	require.Equal(t, "", ShortTypeName("trailing."))
}

func TestCatalogCoversEveryEventType(t *testing.T) {
	catalog := Catalog()
	for _, name := range []string{
		TypeListingVisited,
		TypeListingReviewGroupUpdated,
		TypePlaceStatusChangedToOpen,
		TypePlaceReviewUpdated,
		TypeListingReviewGroupRetrieved,
		TypeListingImageUploaded,
	} {
		factory, ok := catalog[name]
		require.True(t, ok, "no factory for %s", name)
		require.Equal(t, name, factory().EventType())
	}
}

func TestNewBaseStampsUniqueIdentity(t *testing.T) {
	a := NewBase()
	b := NewBase()
	require.NotEqual(t, a.ID, b.ID)
	require.False(t, a.Occurred.IsZero())
}
