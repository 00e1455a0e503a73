package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/portalauth/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimit is a token bucket: Requests per Window, with Burst headroom.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Profiles used by the router. Each can be overridden with
// RATELIMIT_<NAME>_REQUESTS, RATELIMIT_<NAME>_WINDOW_SEC and RATELIMIT_<NAME>_BURST.
var (
	// StrictLimit guards credential-accepting endpoints.
	StrictLimit = RateLimit{Requests: 5, Window: time.Minute, Burst: 5}

	ModerateLimit = RateLimit{Requests: 30, Window: time.Minute, Burst: 30}
	LenientLimit  = RateLimit{Requests: 120, Window: time.Minute, Burst: 120}
	PublicLimit   = RateLimit{Requests: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = RateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = RateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = RateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = RateLimitFromEnv("PUBLIC", PublicLimit)
}

// RateLimitFromEnv overlays positive integer overrides onto def.
func RateLimitFromEnv(name string, def RateLimit) RateLimit {
	out := def
	if n, ok := positiveEnv("RATELIMIT_" + name + "_REQUESTS"); ok {
		out.Requests = n
	}
	if n, ok := positiveEnv("RATELIMIT_" + name + "_WINDOW_SEC"); ok {
		out.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv("RATELIMIT_" + name + "_BURST"); ok {
		out.Burst = n
	}
	return out
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	return n, err == nil && n > 0
}

// KeyFunc groups requests into buckets. An empty key is not limited.
type KeyFunc func(*http.Request) string

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Subject keys on the authenticated subject.
func Subject(r *http.Request) string {
	return SubjectFromContext(r.Context())
}

// FormField keys on a urlencoded form value. JSON bodies yield "".
func FormField(name string) KeyFunc {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return r.PostForm.Get(name)
	}
}

// Compose joins the non-empty keys of fns with ":".
func Compose(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}

type limiterSet struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	lastSweep time.Time
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Idle buckets are full buckets; dropping them loses nothing.
	if time.Since(s.lastSweep) > 5*time.Minute {
		for k, l := range s.buckets {
			if l.Tokens() >= float64(s.burst) {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = time.Now()
	}

	l, ok := s.buckets[key]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.buckets[key] = l
	}
	return l
}

// RateLimitMiddleware rejects requests over cfg with 429 and Retry-After.
func RateLimitMiddleware(cfg RateLimit, key KeyFunc) Middleware {
	set := &limiterSet{
		limit:     rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:     cfg.Burst,
		buckets:   make(map[string]*rate.Limiter),
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			l := set.get(k)
			if l.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			res := l.Reserve()
			retry := max(int(res.Delay().Seconds()), 1)
			res.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", k,
				"path", r.URL.Path,
				"retry_after", retry,
			)
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests")
		})
	}
}

func RateLimitByIP(cfg RateLimit) Middleware {
	return RateLimitMiddleware(cfg, ClientIP)
}

// RateLimitByUser falls back to the client IP for anonymous callers.
func RateLimitByUser(cfg RateLimit) Middleware {
	return RateLimitMiddleware(cfg, Compose(Subject, ClientIP))
}

func RateLimitByIPAndField(cfg RateLimit, field string) Middleware {
	return RateLimitMiddleware(cfg, Compose(ClientIP, FormField(field)))
}
