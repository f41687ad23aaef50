package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/placehub/go/internal/events"
	"github.com/mcdev12/placehub/go/internal/sqlutil"
)

// TypeResolver resolves short event type names to factories. Satisfied by
// eventbus.SubscriptionRegistry.
type TypeResolver interface {
	ResolveType(eventType string) (events.Factory, bool)
}

// Repository is the outbox store, scoped to one service's database. It is a
// pure state ledger: it never publishes anything itself, so broker
// availability can never block a business transaction's commit.
//
// Mark* operations do a load-then-update without an optimistic concurrency
// token; a row is assumed to be driven by one publish attempt at a time.
type Repository struct {
	db    *sql.DB
	types TypeResolver
}

func NewRepository(db *sql.DB, types TypeResolver) *Repository {
	return &Repository{db: db, types: types}
}

// SaveEvent inserts evt as a NotPublished entry inside txn. The insert joins
// the caller's business writes: both commit or roll back together.
func (r *Repository) SaveEvent(ctx context.Context, txn *sqlutil.Txn, evt events.Event) error {
	if txn == nil {
		return ErrNilTransaction
	}
	entry, err := NewEntry(evt, txn.ID)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO event_log (event_id, event_type_name, content, state, times_sent, creation_time, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := txn.ExecContext(ctx, q,
		entry.EventID, entry.EventTypeName, []byte(entry.Content), int(entry.State),
		entry.TimesSent, entry.CreationTime, entry.TransactionID,
	); err != nil {
		return fmt.Errorf("insert event log entry %s: %w", entry.EventID, err)
	}
	return nil
}

// RetrievePending returns the NotPublished entries recorded under
// transactionID in creation order, payloads deserialized. Entries whose type
// cannot be resolved are logged and left pending rather than failing the
// batch. Never returns nil on success.
func (r *Repository) RetrievePending(ctx context.Context, transactionID uuid.UUID) ([]*Entry, error) {
	const q = `
		SELECT event_id, event_type_name, content, state, times_sent, creation_time, transaction_id
		FROM event_log
		WHERE transaction_id = $1 AND state = $2
		ORDER BY creation_time ASC`
	rows, err := r.db.QueryContext(ctx, q, transactionID, int(StateNotPublished))
	if err != nil {
		return nil, fmt.Errorf("query pending event log entries: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

// FetchRedeliverable returns entries stuck before Published: rows still
// NotPublished (their request died before publishing) or PublishedFailed,
// older than the cutoff, in creation order. Used by the redelivery listener.
func (r *Repository) FetchRedeliverable(ctx context.Context, olderThan time.Time, limit int) ([]*Entry, error) {
	const q = `
		SELECT event_id, event_type_name, content, state, times_sent, creation_time, transaction_id
		FROM event_log
		WHERE state IN ($1, $2) AND creation_time < $3
		ORDER BY creation_time ASC
		LIMIT $4`
	rows, err := r.db.QueryContext(ctx, q, int(StateNotPublished), int(StatePublishedFailed), olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("query redeliverable event log entries: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

// CountUndelivered reports how many entries have not reached Published.
func (r *Repository) CountUndelivered(ctx context.Context) (int, error) {
	const q = `SELECT COUNT(*) FROM event_log WHERE state <> $1`
	var count int
	if err := r.db.QueryRowContext(ctx, q, int(StatePublished)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count undelivered event log entries: %w", err)
	}
	return count, nil
}

// MarkInProgress moves the entry into InProgress and increments times_sent.
func (r *Repository) MarkInProgress(ctx context.Context, eventID uuid.UUID) error {
	return r.transition(ctx, eventID, StateInProgress)
}

// MarkPublished finalizes the entry. Published is terminal.
func (r *Repository) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	return r.transition(ctx, eventID, StatePublished)
}

// MarkFailed parks the entry as PublishedFailed, visible for redelivery.
func (r *Repository) MarkFailed(ctx context.Context, eventID uuid.UUID) error {
	return r.transition(ctx, eventID, StatePublishedFailed)
}

func (r *Repository) transition(ctx context.Context, eventID uuid.UUID, next EventState) error {
	var current EventState
	const sel = `SELECT state FROM event_log WHERE event_id = $1`
	if err := r.db.QueryRowContext(ctx, sel, eventID).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, eventID)
		}
		return fmt.Errorf("load event log entry %s: %w", eventID, err)
	}
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, current, next, eventID)
	}

	inc := 0
	if next == StateInProgress {
		inc = 1
	}
	const upd = `UPDATE event_log SET state = $1, times_sent = times_sent + $2 WHERE event_id = $3`
	res, err := r.db.ExecContext(ctx, upd, int(next), inc, eventID)
	if err != nil {
		return fmt.Errorf("update event log entry %s: %w", eventID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, eventID)
	}
	return nil
}

func (r *Repository) collect(rows *sql.Rows) ([]*Entry, error) {
	entries := make([]*Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if err := r.resolve(entry); err != nil {
			log.Warn().
				Err(err).
				Str("event_id", entry.EventID.String()).
				Str("event_type_name", entry.EventTypeName).
				Msg("skipping undeliverable event log entry")
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event log entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var (
		entry Entry
		state int
	)
	if err := rows.Scan(
		&entry.EventID, &entry.EventTypeName, (*[]byte)(&entry.Content),
		&state, &entry.TimesSent, &entry.CreationTime, &entry.TransactionID,
	); err != nil {
		return nil, fmt.Errorf("scan event log entry: %w", err)
	}
	entry.State = EventState(state)
	return &entry, nil
}

// resolve materializes entry.Event through the registered factory for the
// entry's short type name.
func (r *Repository) resolve(entry *Entry) error {
	factory, ok := r.types.ResolveType(entry.ShortTypeName())
	if !ok {
		return &TypeResolutionError{TypeName: entry.EventTypeName}
	}
	evt := factory()
	if err := json.Unmarshal(entry.Content, evt); err != nil {
		return fmt.Errorf("unmarshal %s content: %w", entry.EventTypeName, err)
	}
	entry.Event = evt
	return nil
}
