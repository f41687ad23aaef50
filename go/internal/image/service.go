package image

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

// Service owns image uploads for the image service.
type Service struct {
	db     *sql.DB
	repo   *Repository
	events *integration.Service
}

func NewService(db *sql.DB, repo *Repository, eventsSvc *integration.Service) *Service {
	return &Service{db: db, repo: repo, events: eventsSvc}
}

// AttachImage stores the image record and a ListingImageUploaded event in one
// transaction, then publishes the event after commit.
func (s *Service) AttachImage(ctx context.Context, listingID uuid.UUID, url string) (*Image, error) {
	if url == "" {
		return nil, fmt.Errorf("image url must not be empty")
	}

	img := &Image{
		ID:         uuid.New(),
		ListingID:  listingID,
		URL:        url,
		UploadedAt: time.Now().UTC(),
	}

	evt := events.NewListingImageUploadedEvent(listingID, img.ID, url)
	err := sqlutil.Run(ctx, s.db, func(txn *sqlutil.Txn) error {
		if err := s.repo.InsertImage(ctx, txn, img); err != nil {
			return err
		}
		return s.events.SaveEvent(ctx, txn, evt)
	})
	if err != nil {
		return nil, fmt.Errorf("attach image to %s: %w", listingID, err)
	}

	if err := s.events.PublishThroughEventBus(ctx, evt); err != nil {
		return nil, err
	}
	return img, nil
}

// GetImages returns the listing's images.
func (s *Service) GetImages(ctx context.Context, listingID uuid.UUID) ([]Image, error) {
	return s.repo.ListImages(ctx, listingID)
}
