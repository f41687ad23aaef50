package image

import (
	"time"

	"github.com/google/uuid"
)

// Image is one picture attached to a listing.
type Image struct {
	ID         uuid.UUID `json:"id"`
	ListingID  uuid.UUID `json:"listing_id"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}
