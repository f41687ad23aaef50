package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/placehub/go/internal/events"
	"github.com/mcdev12/placehub/go/internal/integration"
	"github.com/mcdev12/placehub/go/internal/sqlutil"
)

// Service owns review writes for the review service.
type Service struct {
	db     *sql.DB
	repo   *Repository
	events *integration.Service
}

func NewService(db *sql.DB, repo *Repository, eventsSvc *integration.Service) *Service {
	return &Service{db: db, repo: repo, events: eventsSvc}
}

// AddReview inserts the review and records PlaceReviewUpdated with the
// recomputed aggregate in one transaction, then publishes everything saved
// under that transaction after commit.
func (s *Service) AddReview(ctx context.Context, listingID uuid.UUID, reviewerID string, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}

	rev := &Review{
		ID:         uuid.New(),
		ListingID:  listingID,
		ReviewerID: reviewerID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	}

	var txID uuid.UUID
	err := sqlutil.Run(ctx, s.db, func(txn *sqlutil.Txn) error {
		txID = txn.ID
		if err := s.repo.InsertReview(ctx, txn, rev); err != nil {
			return err
		}
		count, avg, err := s.repo.GroupStats(ctx, txn, listingID)
		if err != nil {
			return err
		}
		evt := events.NewPlaceReviewUpdatedEvent(listingID, count, avg)
		return s.events.SaveEvent(ctx, txn, evt)
	})
	if err != nil {
		return nil, fmt.Errorf("add review for %s: %w", listingID, err)
	}

	if err := s.events.PublishPendingThroughEventBus(ctx, txID); err != nil {
		return nil, err
	}
	return rev, nil
}

// GetReviewGroup assembles a listing's review group and announces the
// retrieval so interested services can warm their read models.
func (s *Service) GetReviewGroup(ctx context.Context, listingID uuid.UUID) (*Group, error) {
	group, err := s.repo.GetGroup(ctx, listingID)
	if err != nil {
		return nil, err
	}

	var evt *events.ListingReviewGroupRetrievedEvent
	err = sqlutil.Run(ctx, s.db, func(txn *sqlutil.Txn) error {
		evt = events.NewListingReviewGroupRetrievedEvent(listingID, group.ReviewCount, group.AvgRating)
		return s.events.SaveEvent(ctx, txn, evt)
	})
	if err != nil {
		return nil, fmt.Errorf("record review group retrieval for %s: %w", listingID, err)
	}

	if err := s.events.PublishThroughEventBus(ctx, evt); err != nil {
		return nil, err
	}
	return group, nil
}
