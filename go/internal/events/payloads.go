package events

import "github.com/google/uuid"

// Integration event types shared across the listing, review and image
// services. The payloads live in one catalogue so every service decodes the
// same shapes regardless of which side of the broker it sits on.

const (
	TypeListingVisited              = "ListingVisited"
	TypeListingReviewGroupUpdated   = "ListingReviewGroupUpdated"
	TypePlaceStatusChangedToOpen    = "PlaceStatusChangedToOpen"
	TypePlaceReviewUpdated          = "PlaceReviewUpdated"
	TypeListingReviewGroupRetrieved = "ListingReviewGroupRetrieved"
	TypeListingImageUploaded        = "ListingImageUploaded"
)

// ListingVisitedEvent records that a listing detail page was visited.
type ListingVisitedEvent struct {
	Base
	ListingID uuid.UUID `json:"listing_id"`
	VisitorID string    `json:"visitor_id"`
	Visits    int       `json:"visits"`
}

func NewListingVisitedEvent(listingID uuid.UUID, visitorID string, visits int) *ListingVisitedEvent {
	return &ListingVisitedEvent{Base: NewBase(), ListingID: listingID, VisitorID: visitorID, Visits: visits}
}

func (*ListingVisitedEvent) EventType() string { return TypeListingVisited }

// ListingReviewGroupUpdatedEvent is published by the listing service when it
// has folded fresh review figures into its read model.
type ListingReviewGroupUpdatedEvent struct {
	Base
	ListingID   uuid.UUID `json:"listing_id"`
	ReviewCount int       `json:"review_count"`
	AvgRating   float64   `json:"avg_rating"`
}

func NewListingReviewGroupUpdatedEvent(listingID uuid.UUID, reviewCount int, avgRating float64) *ListingReviewGroupUpdatedEvent {
	return &ListingReviewGroupUpdatedEvent{Base: NewBase(), ListingID: listingID, ReviewCount: reviewCount, AvgRating: avgRating}
}

func (*ListingReviewGroupUpdatedEvent) EventType() string { return TypeListingReviewGroupUpdated }

// PlaceStatusChangedToOpenEvent records a place flipping to open.
type PlaceStatusChangedToOpenEvent struct {
	Base
	ListingID uuid.UUID `json:"listing_id"`
	PlaceID   string    `json:"place_id"`
}

func NewPlaceStatusChangedToOpenEvent(listingID uuid.UUID, placeID string) *PlaceStatusChangedToOpenEvent {
	return &PlaceStatusChangedToOpenEvent{Base: NewBase(), ListingID: listingID, PlaceID: placeID}
}

func (*PlaceStatusChangedToOpenEvent) EventType() string { return TypePlaceStatusChangedToOpen }

// PlaceReviewUpdatedEvent is published by the review service whenever a
// review lands, carrying the recomputed aggregate for the listing.
type PlaceReviewUpdatedEvent struct {
	Base
	ListingID   uuid.UUID `json:"listing_id"`
	ReviewCount int       `json:"review_count"`
	AvgRating   float64   `json:"avg_rating"`
}

func NewPlaceReviewUpdatedEvent(listingID uuid.UUID, reviewCount int, avgRating float64) *PlaceReviewUpdatedEvent {
	return &PlaceReviewUpdatedEvent{Base: NewBase(), ListingID: listingID, ReviewCount: reviewCount, AvgRating: avgRating}
}

func (*PlaceReviewUpdatedEvent) EventType() string { return TypePlaceReviewUpdated }

// ListingReviewGroupRetrievedEvent is published by the review service after
// assembling a listing's full review group on demand.
type ListingReviewGroupRetrievedEvent struct {
	Base
	ListingID   uuid.UUID `json:"listing_id"`
	ReviewCount int       `json:"review_count"`
	AvgRating   float64   `json:"avg_rating"`
}

func NewListingReviewGroupRetrievedEvent(listingID uuid.UUID, reviewCount int, avgRating float64) *ListingReviewGroupRetrievedEvent {
	return &ListingReviewGroupRetrievedEvent{Base: NewBase(), ListingID: listingID, ReviewCount: reviewCount, AvgRating: avgRating}
}

func (*ListingReviewGroupRetrievedEvent) EventType() string { return TypeListingReviewGroupRetrieved }

// ListingImageUploadedEvent records that an image was attached to a listing.
type ListingImageUploadedEvent struct {
	Base
	ListingID uuid.UUID `json:"listing_id"`
	ImageID   uuid.UUID `json:"image_id"`
	URL       string    `json:"url"`
}

func NewListingImageUploadedEvent(listingID, imageID uuid.UUID, url string) *ListingImageUploadedEvent {
	return &ListingImageUploadedEvent{Base: NewBase(), ListingID: listingID, ImageID: imageID, URL: url}
}

func (*ListingImageUploadedEvent) EventType() string { return TypeListingImageUploaded }

// Catalog returns a factory for every integration event type this process
// can produce or consume. Startup code registers it with the subscription
// registry so stored and inbound payloads can be decoded by name.
func Catalog() map[string]Factory {
	return map[string]Factory{
		TypeListingVisited:              func() Event { return &ListingVisitedEvent{} },
		TypeListingReviewGroupUpdated:   func() Event { return &ListingReviewGroupUpdatedEvent{} },
		TypePlaceStatusChangedToOpen:    func() Event { return &PlaceStatusChangedToOpenEvent{} },
		TypePlaceReviewUpdated:          func() Event { return &PlaceReviewUpdatedEvent{} },
		TypeListingReviewGroupRetrieved: func() Event { return &ListingReviewGroupRetrievedEvent{} },
		TypeListingImageUploaded:        func() Event { return &ListingImageUploadedEvent{} },
	}
}
