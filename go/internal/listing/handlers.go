package listing

import (
	"context"
	"fmt"

	"github.com/mcdev12/placehub/go/internal/events"
)

// PlaceReviewUpdatedHandler folds the review service's recomputed aggregate
// into the listing read model. Idempotent: the event carries absolute
// figures, so reapplying it is a no-op.
type PlaceReviewUpdatedHandler struct {
	svc *Service
}

func NewPlaceReviewUpdatedHandler(svc *Service) *PlaceReviewUpdatedHandler {
	return &PlaceReviewUpdatedHandler{svc: svc}
}

func (h *PlaceReviewUpdatedHandler) Handle(ctx context.Context, evt events.Event) error {
	e, ok := evt.(*events.PlaceReviewUpdatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", evt)
	}
	return h.svc.applyReviewStats(ctx, e.ListingID, e.ReviewCount, e.AvgRating)
}

// ListingReviewGroupRetrievedHandler warms the listing cache with figures
// the review service just assembled. Pure cache write, idempotent by
// construction.
type ListingReviewGroupRetrievedHandler struct {
	repo *Repository
}

func NewListingReviewGroupRetrievedHandler(repo *Repository) *ListingReviewGroupRetrievedHandler {
	return &ListingReviewGroupRetrievedHandler{repo: repo}
}

func (h *ListingReviewGroupRetrievedHandler) Handle(ctx context.Context, evt events.Event) error {
	e, ok := evt.(*events.ListingReviewGroupRetrievedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", evt)
	}
	item, err := h.repo.getItemSQL(ctx, h.repo.db, e.ListingID, false)
	if err != nil {
		return err
	}
	item.ReviewCount = e.ReviewCount
	item.AvgRating = e.AvgRating
	h.repo.RefreshCache(ctx, item)
	return nil
}
