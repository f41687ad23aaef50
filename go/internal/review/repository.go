package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/placehub/go/internal/sqlutil"
)

// Repository stores reviews and per-listing visit records in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertReview adds one review inside txn.
func (r *Repository) InsertReview(ctx context.Context, txn *sqlutil.Txn, rev *Review) error {
	const q = `
		INSERT INTO reviews (id, listing_id, reviewer_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := txn.ExecContext(ctx, q,
		rev.ID, rev.ListingID, rev.ReviewerID, rev.Rating, rev.Comment, rev.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert review %s: %w", rev.ID, err)
	}
	return nil
}

// GroupStats returns the review count and average rating for a listing,
// computed inside txn so it sees the transaction's own inserts.
func (r *Repository) GroupStats(ctx context.Context, txn *sqlutil.Txn, listingID uuid.UUID) (int, float64, error) {
	const q = `
		SELECT COUNT(*), COALESCE(AVG(rating), 0)
		FROM reviews
		WHERE listing_id = $1`
	var (
		count int
		avg   float64
	)
	if err := txn.QueryRowContext(ctx, q, listingID).Scan(&count, &avg); err != nil {
		return 0, 0, fmt.Errorf("review stats for %s: %w", listingID, err)
	}
	return count, avg, nil
}

// GetGroup assembles the full review group for a listing.
func (r *Repository) GetGroup(ctx context.Context, listingID uuid.UUID) (*Group, error) {
	const q = `
		SELECT id, listing_id, reviewer_id, rating, comment, created_at
		FROM reviews
		WHERE listing_id = $1
		ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, listingID)
	if err != nil {
		return nil, fmt.Errorf("query reviews for %s: %w", listingID, err)
	}
	defer rows.Close()

	group := &Group{ListingID: listingID, Reviews: []Review{}}
	var total int
	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.ID, &rev.ListingID, &rev.ReviewerID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		group.Reviews = append(group.Reviews, rev)
		total += rev.Rating
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	group.ReviewCount = len(group.Reviews)
	if group.ReviewCount > 0 {
		group.AvgRating = float64(total) / float64(group.ReviewCount)
	}
	return group, nil
}

// RecordVisit stores one listing visit keyed by the originating event id.
// Redelivered events hit the primary key and change nothing, which is what
// makes the ListingVisited handler idempotent.
func (r *Repository) RecordVisit(ctx context.Context, eventID, listingID uuid.UUID, visitedAt time.Time) error {
	const q = `
		INSERT INTO listing_visits (event_id, listing_id, visited_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, q, eventID, listingID, visitedAt); err != nil {
		return fmt.Errorf("record visit %s: %w", eventID, err)
	}
	return nil
}
