package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte(strings.Repeat("a", 32))
	refreshSecret = []byte(strings.Repeat("r", 32))
	t0            = time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock    *fakeClock
	store    *memory.Store
	issuer   *TokenIssuer
	verifier *TokenVerifier
	pairs    *TokenPairService
}

func mustSigner(t *testing.T, alg string, material []byte) jwtx.Signer {
	t.Helper()
	s, err := jwtx.NewSigner(alg, "", material)
	require.NoError(t, err)
	return s
}

func hmacConfig(t *testing.T, clock *fakeClock) IssuerConfig {
	t.Helper()
	return IssuerConfig{
		Access:   SigningProfile{Signer: mustSigner(t, jwtx.AlgorithmHS256, accessSecret), TTL: 15 * time.Minute},
		Refresh:  SigningProfile{Signer: mustSigner(t, jwtx.AlgorithmHS256, refreshSecret), TTL: 7 * 24 * time.Hour},
		Issuer:   "portal-auth",
		Audience: []string{"portal"},
		Now:      clock.Now,
	}
}

func newFixture(t *testing.T, mutate ...func(*IssuerConfig)) *fixture {
	t.Helper()
	clock := &fakeClock{now: t0}
	cfg := hmacConfig(t, clock)
	for _, m := range mutate {
		m(&cfg)
	}
	return newFixtureWith(t, clock, cfg, memory.NewStore())
}

func newFixtureWith(t *testing.T, clock *fakeClock, cfg IssuerConfig, mem *memory.Store) *fixture {
	t.Helper()
	iss, err := NewTokenIssuer(cfg)
	require.NoError(t, err)

	ver := NewTokenVerifier(iss, mem, VerifierOptions{})
	return &fixture{
		clock:    clock,
		store:    mem,
		issuer:   iss,
		verifier: ver,
		pairs:    NewTokenPairService(iss, ver, mem, TransportConfig{Secure: true}),
	}
}

func alice() domain.Principal {
	return domain.Principal{
		Subject:  "alice",
		Username: "alice",
		Attributes: map[string]domain.Attribute{
			"roles":      jwtx.Strings("staff", "admin"),
			"department": jwtx.String("ICT"),
		},
	}
}

func (f *fixture) issuePair(t *testing.T) domain.TokenPair {
	t.Helper()
	pair, err := f.pairs.IssuePair(context.Background(), alice())
	require.NoError(t, err)
	return pair
}

// faultyStore wraps the memory driver and injects failures.
type faultyStore struct {
	*memory.Store
	insertErr   error
	containsErr error
	evictErr    error
	evictPanic  bool
}

func (s *faultyStore) Insert(ctx context.Context, rec domain.RevocationRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.Store.Insert(ctx, rec)
}

func (s *faultyStore) Contains(ctx context.Context, jti string) (bool, error) {
	if s.containsErr != nil {
		return false, s.containsErr
	}
	return s.Store.Contains(ctx, jti)
}

func (s *faultyStore) EvictExpired(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	if s.evictPanic {
		panic("index corrupted")
	}
	if s.evictErr != nil {
		return 0, s.evictErr
	}
	return s.Store.EvictExpired(ctx, now, retention)
}

var errStoreDown = errors.New("connection refused")

func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	require.Equal(t, kind, domain.KindOf(err))
}

// gatedStore holds Insert until released and then honours cancellation the
// way a networked driver would.
type gatedStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(mem *memory.Store) *gatedStore {
	return &gatedStore{Store: mem, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) Insert(ctx context.Context, rec domain.RevocationRecord) error {
	close(s.entered)
	<-s.release
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Insert(ctx, rec)
}
