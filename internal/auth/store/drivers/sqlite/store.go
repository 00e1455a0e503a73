// Package sqlite keeps the revocation list in a SQLite database for
// single-node deployments that must survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/portalauth/internal/auth/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var (
	_ store.Revocations = (*Store)(nil)
	_ store.Migrator    = (*Store)(nil)
)

// NewStore opens dsn, e.g. "file:revocations.db" or ":memory:".
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// One connection serialises writers and keeps ":memory:" a single
	// database instead of one per pooled connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: pragma: %w", err)
	}

	return New(db), nil
}

// New wraps an existing handle. The caller owns migrations.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
