// Package database wraps sqlx so every repository and the round
// calculation transaction share one connection-pool/transaction
// abstraction instead of importing database/sql directly.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB is the subset of *sqlx.DB operations the repositories need, plus
// GetTx for obtaining a (possibly already-open) transaction from a
// context.
type DB interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	PingContext(ctx context.Context) error
	Close() error

	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error)
}

// Instance is the concrete DB backed by a real *sqlx.DB connection pool.
type Instance struct {
	*sqlx.DB
	logger ectologger.Logger
}

// NewInstance wraps an established sqlx connection pool.
func NewInstance(db *sqlx.DB, logger ectologger.Logger) DB {
	return &Instance{DB: db, logger: logger}
}

// GetTx returns the open transaction carried in ctx, or begins a new one.
func (db *Instance) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error) {
	return GetTx(ctx, db.logger, db, opts)
}

// ConnectConfig configures the Postgres connection pool.
type ConnectConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens and pings a Postgres connection pool wrapped as a DB.
func Connect(ctx context.Context, cfg ConnectConfig, logger ectologger.Logger) (DB, error) {
	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewInstance(db, logger), nil
}
