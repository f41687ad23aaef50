package image

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/placehub/go/internal/sqlutil"
)

// Repository stores listing images in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertImage adds one image record inside txn.
func (r *Repository) InsertImage(ctx context.Context, txn *sqlutil.Txn, img *Image) error {
	const q = `
		INSERT INTO listing_images (id, listing_id, url, uploaded_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := txn.ExecContext(ctx, q, img.ID, img.ListingID, img.URL, img.UploadedAt); err != nil {
		return fmt.Errorf("insert image %s: %w", img.ID, err)
	}
	return nil
}

// ListImages returns all images for a listing, oldest first.
func (r *Repository) ListImages(ctx context.Context, listingID uuid.UUID) ([]Image, error) {
	const q = `
		SELECT id, listing_id, url, uploaded_at
		FROM listing_images
		WHERE listing_id = $1
		ORDER BY uploaded_at ASC`
	rows, err := r.db.QueryContext(ctx, q, listingID)
	if err != nil {
		return nil, fmt.Errorf("query images for %s: %w", listingID, err)
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.ListingID, &img.URL, &img.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return images, nil
}
