package review

import (
	"time"

	"github.com/google/uuid"
)

// Review is one user review of a listing.
type Review struct {
	ID         uuid.UUID `json:"id"`
	ListingID  uuid.UUID `json:"listing_id"`
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// Group is a listing's assembled review set with its aggregate figures.
type Group struct {
	ListingID   uuid.UUID `json:"listing_id"`
	Reviews     []Review  `json:"reviews"`
	ReviewCount int       `json:"review_count"`
	AvgRating   float64   `json:"avg_rating"`
}
