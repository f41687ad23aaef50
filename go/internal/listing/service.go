package listing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/placehub/go/internal/events"
	"github.com/mcdev12/placehub/go/internal/integration"
	"github.com/mcdev12/placehub/go/internal/sqlutil"
)

// Service owns listing writes. Every state change that other services care
// about records its integration event in the same transaction as the write,
// then publishes after commit.
type Service struct {
	db     *sql.DB
	repo   *Repository
	events *integration.Service
}

func NewService(db *sql.DB, repo *Repository, eventsSvc *integration.Service) *Service {
	return &Service{db: db, repo: repo, events: eventsSvc}
}

// GetListing returns one listing, served from the cache when warm.
func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetItem(ctx, id)
}

// CreateListing inserts a new listing.
func (s *Service) CreateListing(ctx context.Context, placeID, name, description string) (*Item, error) {
	item := &Item{
		ID:          uuid.New(),
		PlaceID:     placeID,
		Name:        name,
		Description: description,
		UpdatedAt:   time.Now().UTC(),
	}
	err := sqlutil.Run(ctx, s.db, func(txn *sqlutil.Txn) error {
		return s.repo.SaveItem(ctx, txn, item)
	})
	if err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	s.repo.RefreshCache(ctx, item)
	return item, nil
}

// VisitListing increments the visit counter and records ListingVisited in
// the same transaction, then publishes after commit. A publish failure does
// not fail the visit: the event waits in the outbox.
func (s *Service) VisitListing(ctx context.Context, listingID uuid.UUID, visitorID string) error {
	var (
		evt  *events.ListingVisitedEvent
		item *Item
	)
	err := sqlutil.Run(ctx, s.db, func(txn *sqlutil.Txn) error {
		var err error
		item, err = s.repo.GetItemForUpdate(ctx, txn, listingID)
		if err != nil {
			return err
		}
		item.Visits++
		item.UpdatedAt = time.Now().UTC()
		if err := s.repo.SaveItem(ctx, txn, item); err != nil {
			return err
		}
		evt = events.NewListingVisitedEvent(listingID, visitorID, item.Visits)
		return s.events.SaveEvent(ctx, txn, evt)
	})
	if err != nil {
		return fmt.Errorf("visit listing %s: %w", listingID, err)
	}

	s.repo.RefreshCache(ctx, item)
	return s.events.PublishThroughEventBus(ctx, evt)
}

// SetPlaceOpen flips the open flag. Opening a place emits
// PlaceStatusChangedToOpen; all events saved in the transaction are
// published through the pending-retrieval path after commit.
func (s *Service) SetPlaceOpen(ctx context.Context, listingID uuid.UUID, open bool) error {
	var txID uuid.UUID
	err := sqlutil.Run(ctx, s.db, func(txn *sqlutil.Txn) error {
		txID = txn.ID
		item, err := s.repo.GetItemForUpdate(ctx, txn, listingID)
		if err != nil {
			return err
		}
		wasOpen := item.Open
		item.Open = open
		item.UpdatedAt = time.Now().UTC()
		if err := s.repo.SaveItem(ctx, txn, item); err != nil {
			return err
		}
		if open && !wasOpen {
			evt := events.NewPlaceStatusChangedToOpenEvent(listingID, item.PlaceID)
			if err := s.events.SaveEvent(ctx, txn, evt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set place open %s: %w", listingID, err)
	}

	return s.events.PublishPendingThroughEventBus(ctx, txID)
}

// applyReviewStats folds review figures into the listing row and emits
// ListingReviewGroupUpdated. Used by the inbound handlers; setting absolute
// values keeps redelivery idempotent.
func (s *Service) applyReviewStats(ctx context.Context, listingID uuid.UUID, reviewCount int, avgRating float64) error {
	var (
		evt  *events.ListingReviewGroupUpdatedEvent
		item *Item
	)
	err := sqlutil.Run(ctx, s.db, func(txn *sqlutil.Txn) error {
		var err error
		item, err = s.repo.GetItemForUpdate(ctx, txn, listingID)
		if err != nil {
			return err
		}
		if item.ReviewCount == reviewCount && item.AvgRating == avgRating {
			// Redelivery of figures already applied; nothing to do.
			return nil
		}
		item.ReviewCount = reviewCount
		item.AvgRating = avgRating
		item.UpdatedAt = time.Now().UTC()
		if err := s.repo.SaveItem(ctx, txn, item); err != nil {
			return err
		}
		evt = events.NewListingReviewGroupUpdatedEvent(listingID, reviewCount, avgRating)
		return s.events.SaveEvent(ctx, txn, evt)
	})
	if err != nil {
		return fmt.Errorf("apply review stats for %s: %w", listingID, err)
	}

	s.repo.RefreshCache(ctx, item)
	if evt == nil {
		return nil
	}
	if err := s.events.PublishThroughEventBus(ctx, evt); err != nil {
		log.Error().Err(err).Str("listing_id", listingID.String()).Msg("failed to publish review group update")
		return err
	}
	return nil
}
