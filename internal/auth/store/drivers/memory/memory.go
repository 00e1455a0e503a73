// Package memory is an in-process revocation list for single-instance
// deployments and tests. Contents do not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/store"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]domain.RevocationRecord
}

var _ store.Revocations = (*Store)(nil)

func NewStore() *Store {
	return &Store{records: make(map[string]domain.RevocationRecord)}
}

func (s *Store) Insert(_ context.Context, rec domain.RevocationRecord) error {
	if err := store.CheckRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.records[rec.JTI]; ok {
		prev.RevokedAt = rec.RevokedAt
		s.records[rec.JTI] = prev
		return nil
	}
	s.records[rec.JTI] = rec
	return nil
}

func (s *Store) Contains(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[jti]
	return ok, nil
}

func (s *Store) EvictExpired(_ context.Context, now time.Time, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for jti, rec := range s.records {
		if rec.Evictable(now, retention) {
			delete(s.records, jti)
			n++
		}
	}
	return n, nil
}

// Get returns the stored record for jti.
func (s *Store) Get(jti string) (domain.RevocationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[jti]
	return rec, ok
}

// Len is the number of records currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }
