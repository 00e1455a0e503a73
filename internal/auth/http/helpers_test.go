package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/directory"
	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	authhttp "github.com/aussiebroadwan/portalauth/internal/auth/http"
	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/cryptox"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const password = "correct horse battery staple"

var (
	directoryOnce sync.Once
	directoryFile string
	directoryErr  error
)

// testDirectory writes alice (admin) and bob (staff) once per test binary;
// Argon2 is slow enough to matter when every test hashes.
func testDirectory(t *testing.T) *directory.Static {
	t.Helper()
	hasher := cryptox.PasswordHasher{Pepper: "test-pepper"}

	directoryOnce.Do(func() {
		var hash string
		hash, directoryErr = hasher.Hash(password)
		if directoryErr != nil {
			return
		}
		dir, err := os.MkdirTemp("", "portal-directory")
		if err != nil {
			directoryErr = err
			return
		}
		directoryFile = filepath.Join(dir, "directory.yaml")
		body := fmt.Sprintf(`
users:
  - subject: s0000001
    username: alice
    password_hash: '%[1]s'
    attributes:
      roles: [staff, admin]
      department: ICT
  - subject: s0000002
    username: bob
    password_hash: '%[1]s'
    attributes:
      roles: staff
`, hash)
		directoryErr = os.WriteFile(directoryFile, []byte(body), 0o600)
	})
	require.NoError(t, directoryErr)

	d, err := directory.LoadStatic(directoryFile, hasher)
	require.NoError(t, err)
	return d
}

// flakyStore is the memory driver with switchable failures.
type flakyStore struct {
	*memory.Store
	readsDown  atomic.Bool
	writesDown atomic.Bool
}

var errDown = errors.New("connection refused")

func (s *flakyStore) Contains(ctx context.Context, jti string) (bool, error) {
	if s.readsDown.Load() {
		return false, errDown
	}
	return s.Store.Contains(ctx, jti)
}

func (s *flakyStore) Insert(ctx context.Context, rec domain.RevocationRecord) error {
	if s.writesDown.Load() {
		return errDown
	}
	return s.Store.Insert(ctx, rec)
}

func (s *flakyStore) Ping(ctx context.Context) error {
	if s.readsDown.Load() {
		return errDown
	}
	return s.Store.Ping(ctx)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	handler http.Handler
	store   *flakyStore
	clock   *clock
	pairs   *service.TokenPairService

	ip atomic.Int32
}

type fixtureOption func(*service.IssuerConfig)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	mustSigner := func(alg string, material []byte) jwtx.Signer {
		s, err := jwtx.NewSigner(alg, "", material)
		require.NoError(t, err)
		return s
	}

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	cfg := service.IssuerConfig{
		Access:   service.SigningProfile{Signer: mustSigner(jwtx.AlgorithmHS256, []byte(strings.Repeat("a", 32))), TTL: 15 * time.Minute},
		Refresh:  service.SigningProfile{Signer: mustSigner(jwtx.AlgorithmHS256, []byte(strings.Repeat("r", 32))), TTL: 7 * 24 * time.Hour},
		Issuer:   "portal-auth",
		Audience: []string{"portal"},
		Now:      clk.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	iss, err := service.NewTokenIssuer(cfg)
	require.NoError(t, err)

	st := &flakyStore{Store: memory.NewStore()}
	ver := service.NewTokenVerifier(iss, st, service.VerifierOptions{})
	pairs := service.NewTokenPairService(iss, ver, st, service.TransportConfig{Secure: true})

	router := authhttp.NewRouter(authhttp.Deps{
		Pairs:     pairs,
		Verifier:  ver,
		Issuer:    iss,
		Directory: testDirectory(t),
		Store:     st,
		Version:   "test",
		Logger:    slogx.Discard(),
	})
	router.ApplyRoutes()

	return &fixture{handler: router, store: st, clock: clk, pairs: pairs}
}

type request struct {
	method string
	path   string
	form   url.Values
	json   any
	bearer string
	ip     string
	cookie []*http.Cookie
}

// do sends req. Each request gets its own client IP unless one is set, so
// rate limits only bite in tests that ask for them.
func (f *fixture) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body *strings.Reader
	switch {
	case req.json != nil:
		raw, err := json.Marshal(req.json)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
	default:
		body = strings.NewReader(req.form.Encode())
	}

	method := req.method
	if method == "" {
		method = http.MethodPost
	}
	r := httptest.NewRequest(method, req.path, body)
	switch {
	case req.json != nil:
		r.Header.Set("Content-Type", "application/json")
	case method == http.MethodPost:
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if req.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	ip := req.ip
	if ip == "" {
		n := f.ip.Add(1)
		ip = fmt.Sprintf("10.0.%d.%d", n/250, n%250+1)
	}
	r.Header.Set("X-Forwarded-For", ip)
	for _, c := range req.cookie {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	return rec
}

func (f *fixture) login(t *testing.T, username string) authsdk.TokenPairResponse {
	t.Helper()
	rec := f.do(t, request{path: "/v1/auth/login", form: url.Values{
		"username": {username},
		"password": {password},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authsdk.TokenPairResponse](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, code, decode[authsdk.ErrorResponse](t, rec).Error)
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}
