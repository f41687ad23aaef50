package sqlutil

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Txn wraps a *sql.Tx with a process-generated transaction id. The id groups
// outbox rows written inside one business transaction so they can be
// retrieved together after commit.
type Txn struct {
	*sql.Tx
	ID uuid.UUID
}

// Begin opens a transaction and stamps it with a fresh id.
func Begin(ctx context.Context, db *sql.DB) (*Txn, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Txn{Tx: tx, ID: uuid.New()}, nil
}

// Run executes fn inside a transaction.
// If fn returns an error the tx rolls back, else it commits.
func Run(ctx context.Context, db *sql.DB, fn func(txn *Txn) error) error {
	txn, err := Begin(ctx, db)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		_ = txn.Rollback()
		return err
	}
	return txn.Commit()
}
