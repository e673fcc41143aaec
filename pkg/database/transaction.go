package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type txContextKey string

const (
	txStatusKey = txContextKey("txStatus")
	txKey       = txContextKey("tx")
)

// Tx is the subset of *sqlx.Tx operations repositories use, plus the
// open/commit/rollback bookkeeping WithTx relies on to nest safely.
type Tx interface {
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

// Transaction wraps *sqlx.Tx with idempotent commit/rollback so callers
// that share a context-carried transaction never double-close it.
type Transaction struct {
	*sqlx.Tx
	logger   ectologger.Logger
	isClosed bool
}

// NewTx wraps an already-begun sqlx transaction.
func NewTx(tx *sqlx.Tx, logger ectologger.Logger) Tx {
	return &Transaction{Tx: tx, logger: logger}
}

// GetTx returns the transaction already open on ctx, if any, or begins
// a new one and attaches it to the returned context. Callers that began
// the outer transaction are responsible for commit/rollback; nested
// calls reuse the same transaction and leave it for the opener to close.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if existing, ok := ctx.Value(txKey).(Tx); ok && existing != nil && existing.IsOpen() {
		if status, ok := ctx.Value(txStatusKey).(string); ok && status == "open" {
			return ctx, existing, nil
		}
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction: %w", err)
	}

	newTx := NewTx(tx, logger)
	ctx = context.WithValue(ctx, txStatusKey, "open")
	ctx = context.WithValue(ctx, txKey, newTx)
	return ctx, newTx, nil
}

// IsOpen reports whether the transaction has not yet been committed or
// rolled back.
func (t *Transaction) IsOpen() bool {
	return !t.isClosed
}

// Rollback rolls back the transaction. It is a no-op if already closed,
// or if ctx carries an outer open transaction that must close it instead.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.isClosed {
		return nil
	}
	if status, ok := ctx.Value(txStatusKey).(string); ok && status == "open" {
		return nil
	}

	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back transaction")
		return fmt.Errorf("error while rolling back transaction: %w", err)
	}
	t.isClosed = true
	return nil
}

// Commit commits the transaction. It is a no-op if already closed.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.isClosed {
		return nil
	}

	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction: %w", err)
	}
	t.isClosed = true
	return nil
}
