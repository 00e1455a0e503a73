package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
)

var ErrInvalidRecord = errors.New("store: invalid revocation record")

// Revocations is the revocation list. Drivers (memory, sqlite, postgres,
// redis) implement it and are safe for concurrent use. A completed Insert is
// visible to every later Contains.
type Revocations interface {
	// Insert records a revoked jti. Inserting a jti that is already present
	// refreshes RevokedAt and keeps the original ExpiresAt and OwnerID.
	Insert(ctx context.Context, rec domain.RevocationRecord) error

	// Contains reports whether jti has been revoked and not yet evicted.
	Contains(ctx context.Context, jti string) (bool, error)

	// EvictExpired removes records whose ExpiresAt+retention is before now
	// and returns how many went.
	EvictExpired(ctx context.Context, now time.Time, retention time.Duration) (int, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// Migrator is implemented by SQL drivers that own a schema.
type Migrator interface {
	ApplyMigrations(ctx context.Context) error
}

// CheckRecord is the validation every driver applies on Insert.
func CheckRecord(rec domain.RevocationRecord) error {
	if rec.JTI == "" || rec.ExpiresAt.IsZero() {
		return ErrInvalidRecord
	}
	return nil
}
