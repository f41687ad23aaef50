package listing

import (
	"time"

	"github.com/google/uuid"
)

// Item is one place listing as the listing service sees it: the place's
// identity plus the denormalized figures other services feed it.
type Item struct {
	ID          uuid.UUID `json:"id"`
	PlaceID     string    `json:"place_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Open        bool      `json:"open"`
	Visits      int       `json:"visits"`
	ReviewCount int       `json:"review_count"`
	AvgRating   float64   `json:"avg_rating"`
	UpdatedAt   time.Time `json:"updated_at"`
}
