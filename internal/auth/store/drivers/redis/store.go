// Package redis keeps the revocation list in Redis. Every record carries a
// native TTL of expiry plus retention, so Redis drops most records on its own
// and EvictExpired only sweeps what is left.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultPrefix = "revoked:"

type Options struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces keys; defaults to DefaultPrefix.
	Prefix string

	// Retention is added to each record's expiry to form its TTL.
	Retention time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

type Store struct {
	rdb       *goredis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
}

var _ store.Revocations = (*Store)(nil)

// NewStore dials opts.Addr and pings it.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return New(rdb, opts), nil
}

// New wraps an existing client.
func New(rdb *goredis.Client, opts Options) *Store {
	s := &Store{
		rdb:       rdb,
		prefix:    opts.Prefix,
		retention: opts.Retention,
		now:       opts.Now,
	}
	if s.prefix == "" {
		s.prefix = DefaultPrefix
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// record is the stored JSON value. Times are unix milliseconds.
type record struct {
	OwnerID   string `json:"owner_id"`
	RevokedAt int64  `json:"revoked_at"`
	ExpiresAt int64  `json:"expires_at"`
}

func (r record) evictable(now time.Time, retention time.Duration) bool {
	return domain.RevocationRecord{ExpiresAt: time.UnixMilli(r.ExpiresAt)}.Evictable(now, retention)
}

func (s *Store) key(jti string) string { return s.prefix + jti }

// ttlFor never returns less than a second; Redis treats zero as "no expiry".
func ttlFor(expiresAt time.Time, retention time.Duration, now time.Time) time.Duration {
	return max(expiresAt.Add(retention).Sub(now), time.Second)
}

func (s *Store) Insert(ctx context.Context, rec domain.RevocationRecord) error {
	if err := store.CheckRecord(rec); err != nil {
		return err
	}

	key := s.key(rec.JTI)
	payload, err := json.Marshal(record{
		OwnerID:   rec.OwnerID,
		RevokedAt: rec.RevokedAt.UnixMilli(),
		ExpiresAt: rec.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("redis: encode revocation: %w", err)
	}
	ttl := ttlFor(rec.ExpiresAt, s.retention, s.now())

	created, err := s.rdb.SetNX(ctx, key, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: insert revocation: %w", err)
	}
	if created {
		return nil
	}

	// Already revoked: refresh revoked_at, keep everything else and the TTL.
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		// Expired between the two calls.
		if err := s.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
			return fmt.Errorf("redis: insert revocation: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis: read revocation: %w", err)
	}

	var prev record
	if err := json.Unmarshal(raw, &prev); err != nil {
		return fmt.Errorf("redis: decode revocation: %w", err)
	}
	prev.RevokedAt = rec.RevokedAt.UnixMilli()
	if payload, err = json.Marshal(prev); err != nil {
		return fmt.Errorf("redis: encode revocation: %w", err)
	}

	err = s.rdb.SetArgs(ctx, key, payload, goredis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis: update revocation: %w", err)
	}
	return nil
}

func (s *Store) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: lookup revocation: %w", err)
	}
	return n > 0, nil
}

// EvictExpired scans the prefix and deletes records past now-retention. This
// matters when retention shrinks between deploys or the clock is injected.
func (s *Store) EvictExpired(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	removed := 0
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		raw, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("redis: read revocation: %w", err)
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			// Left for its TTL.
			continue
		}
		if !rec.evictable(now, retention) {
			continue
		}

		n, err := s.rdb.Del(ctx, key).Result()
		if err != nil {
			return removed, fmt.Errorf("redis: evict revocation: %w", err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis: scan revocations: %w", err)
	}
	return removed, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
