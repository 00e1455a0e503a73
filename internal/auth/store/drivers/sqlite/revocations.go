package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/store"
)

const (
	insertRevocation = `
INSERT INTO revoked_tokens (jti, owner_id, revoked_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (jti) DO UPDATE SET revoked_at = excluded.revoked_at`

	containsRevocation = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`

	evictRevocations = `DELETE FROM revoked_tokens WHERE expires_at < ?`
)

func (s *Store) Insert(ctx context.Context, rec domain.RevocationRecord) error {
	if err := store.CheckRecord(rec); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, insertRevocation,
		rec.JTI,
		rec.OwnerID,
		rec.RevokedAt.UnixMilli(),
		rec.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert revocation: %w", err)
	}
	return nil
}

func (s *Store) Contains(ctx context.Context, jti string) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, containsRevocation, jti).Scan(&found); err != nil {
		return false, fmt.Errorf("sqlite: lookup revocation: %w", err)
	}
	return found, nil
}

func (s *Store) EvictExpired(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, evictRevocations, now.Add(-retention).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite: evict revocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: evict revocations: %w", err)
	}
	return int(n), nil
}
