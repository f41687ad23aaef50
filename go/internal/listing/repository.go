package listing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/placehub/go/internal/sqlutil"
)

// ErrListingNotFound means no listing exists for the given id.
var ErrListingNotFound = errors.New("listing: not found")

// Repository stores listing items in Postgres with a Redis read-through
// cache. The cache is best effort: writes go to Postgres inside the caller's
// transaction and the cache is refreshed after commit.
type Repository struct {
	db    *sql.DB
	cache *redis.Client
	ttl   time.Duration
}

func NewRepository(db *sql.DB, cache *redis.Client) *Repository {
	return &Repository{db: db, cache: cache, ttl: 15 * time.Minute}
}

func cacheKey(id uuid.UUID) string { return "listing:" + id.String() }

// GetItem returns the listing, preferring the cache.
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	if r.cache != nil {
		data, err := r.cache.Get(ctx, cacheKey(id)).Bytes()
		if err == nil {
			var item Item
			if err := json.Unmarshal(data, &item); err == nil {
				return &item, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("listing_id", id.String()).Msg("listing cache read failed")
		}
	}

	item, err := r.getItemSQL(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	r.RefreshCache(ctx, item)
	return item, nil
}

// GetItemForUpdate loads the listing row with a row lock inside txn.
func (r *Repository) GetItemForUpdate(ctx context.Context, txn *sqlutil.Txn, id uuid.UUID) (*Item, error) {
	return r.getItemSQL(ctx, txn, id, true)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) getItemSQL(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*Item, error) {
	query := `
		SELECT id, place_id, name, description, open, visits, review_count, avg_rating, updated_at
		FROM listing_items
		WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var item Item
	err := q.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.PlaceID, &item.Name, &item.Description, &item.Open,
		&item.Visits, &item.ReviewCount, &item.AvgRating, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrListingNotFound, id)
		}
		return nil, fmt.Errorf("load listing %s: %w", id, err)
	}
	return &item, nil
}

// SaveItem upserts the listing row inside txn.
func (r *Repository) SaveItem(ctx context.Context, txn *sqlutil.Txn, item *Item) error {
	const q = `
		INSERT INTO listing_items (id, place_id, name, description, open, visits, review_count, avg_rating, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			place_id = EXCLUDED.place_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			open = EXCLUDED.open,
			visits = EXCLUDED.visits,
			review_count = EXCLUDED.review_count,
			avg_rating = EXCLUDED.avg_rating,
			updated_at = EXCLUDED.updated_at`
	if _, err := txn.ExecContext(ctx, q,
		item.ID, item.PlaceID, item.Name, item.Description, item.Open,
		item.Visits, item.ReviewCount, item.AvgRating, item.UpdatedAt,
	); err != nil {
		return fmt.Errorf("save listing %s: %w", item.ID, err)
	}
	return nil
}

// RefreshCache writes the item to Redis. Best effort; failures are logged,
// never returned, since Postgres holds the truth.
func (r *Repository) RefreshCache(ctx context.Context, item *Item) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(item)
	if err != nil {
		log.Warn().Err(err).Str("listing_id", item.ID.String()).Msg("listing cache marshal failed")
		return
	}
	if err := r.cache.Set(ctx, cacheKey(item.ID), data, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("listing_id", item.ID.String()).Msg("listing cache write failed")
	}
}
