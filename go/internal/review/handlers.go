package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/placehub/go/internal/events"
)

// VisitRecorder stores one visit keyed by event id; satisfied by Repository.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, eventID, listingID uuid.UUID, visitedAt time.Time) error
}

// ListingVisitedHandler records each listing visit on the review side so
// review weighting can factor in traffic. The insert is keyed by event id,
// so redeliveries collapse into the original row.
type ListingVisitedHandler struct {
	repo VisitRecorder
}

func NewListingVisitedHandler(repo VisitRecorder) *ListingVisitedHandler {
	return &ListingVisitedHandler{repo: repo}
}

func (h *ListingVisitedHandler) Handle(ctx context.Context, evt events.Event) error {
	e, ok := evt.(*events.ListingVisitedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", evt)
	}
	return h.repo.RecordVisit(ctx, e.EventID(), e.ListingID, e.OccurredAt())
}
