// Package storetest is the conformance suite every revocation driver runs.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/store"
	"github.com/stretchr/testify/require"
)

const retention = 24 * time.Hour

// Run exercises s. Each subtest uses its own jti namespace, so s may be shared
// between subtests but must start empty.
func Run(t *testing.T, s store.Revocations) {
	t.Helper()
	ctx := context.Background()

	// Anchored to the wall clock so TTL-based drivers keep records alive.
	base := time.Now().UTC().Truncate(time.Second)

	rec := func(jti string, exp time.Time) domain.RevocationRecord {
		return domain.RevocationRecord{JTI: jti, OwnerID: "u-1", RevokedAt: base, ExpiresAt: exp}
	}

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("unknown jti is not revoked", func(t *testing.T) {
		ok, err := s.Contains(ctx, "never-inserted")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("insert then contains", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, rec("basic-1", base.Add(time.Hour))))

		ok, err := s.Contains(ctx, "basic-1")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("rejects invalid records", func(t *testing.T) {
		require.ErrorIs(t, s.Insert(ctx, rec("", base.Add(time.Hour))), store.ErrInvalidRecord)
		require.ErrorIs(t, s.Insert(ctx, rec("no-exp", time.Time{})), store.ErrInvalidRecord)
	})

	t.Run("insert is idempotent and keeps original expiry", func(t *testing.T) {
		exp := base.Add(2 * time.Hour)
		require.NoError(t, s.Insert(ctx, rec("idem-1", exp)))

		again := rec("idem-1", base.Add(100*time.Hour))
		again.RevokedAt = base.Add(time.Minute)
		require.NoError(t, s.Insert(ctx, again))

		ok, err := s.Contains(ctx, "idem-1")
		require.NoError(t, err)
		require.True(t, ok)

		// Evictable under the first expiry, which proves the second insert did
		// not move it.
		n, err := s.EvictExpired(ctx, exp.Add(retention+time.Second), retention)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1)

		ok, err = s.Contains(ctx, "idem-1")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("eviction only removes records past retention", func(t *testing.T) {
		soon := base.Add(3 * time.Hour)
		later := base.Add(30 * time.Hour)
		require.NoError(t, s.Insert(ctx, rec("evict-soon", soon)))
		require.NoError(t, s.Insert(ctx, rec("evict-later", later)))

		// Exactly at the boundary nothing goes.
		_, err := s.EvictExpired(ctx, soon.Add(retention), retention)
		require.NoError(t, err)
		requireRevoked(t, s, "evict-soon", true)

		_, err = s.EvictExpired(ctx, soon.Add(retention+time.Second), retention)
		require.NoError(t, err)
		requireRevoked(t, s, "evict-soon", false)
		requireRevoked(t, s, "evict-later", true)
	})

	t.Run("eviction with nothing to do", func(t *testing.T) {
		n, err := s.EvictExpired(ctx, base.Add(-48*time.Hour), retention)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("concurrent insert and contains", func(t *testing.T) {
		const workers = 8
		const perWorker = 25

		var wg sync.WaitGroup
		errs := make(chan error, workers*perWorker*2)
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perWorker {
					jti := fmt.Sprintf("conc-%d-%d", w, i)
					if err := s.Insert(ctx, rec(jti, base.Add(time.Hour))); err != nil {
						errs <- err
						continue
					}
					ok, err := s.Contains(ctx, jti)
					if err != nil {
						errs <- err
					} else if !ok {
						errs <- fmt.Errorf("%s not visible after insert", jti)
					}
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	})
}

func requireRevoked(t *testing.T, s store.Revocations, jti string, want bool) {
	t.Helper()
	ok, err := s.Contains(context.Background(), jti)
	require.NoError(t, err)
	require.Equal(t, want, ok, jti)
}
