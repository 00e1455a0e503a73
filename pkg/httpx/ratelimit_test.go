package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/portalauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{"remote addr", nil, "192.168.1.1"},
		{"forwarded for first hop", map[string]string{"X-Forwarded-For": "203.0.113.1, 192.168.1.1"}, "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.2 "}, "203.0.113.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.ClientIP(req))
		})
	}
}

func TestComposeSkipsEmptyKeys(t *testing.T) {
	form := url.Values{"username": {"alice"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "10.0.0.1:1"

	key := httpx.Compose(httpx.Subject, httpx.ClientIP, httpx.FormField("username"))
	require.Equal(t, "10.0.0.1:alice", key(req))

	// The body is still readable by the handler afterwards.
	require.Equal(t, "alice", req.PostForm.Get("username"))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := httpx.RateLimit{Requests: 2, Window: time.Minute, Burst: 2}

	t.Run("blocks over limit", func(t *testing.T) {
		h := httpx.RateLimitByIP(cfg)(okHandler())

		codes := make([]int, 0, 3)
		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:1"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)

			if rec.Code == http.StatusTooManyRequests {
				require.NotEmpty(t, rec.Header().Get("Retry-After"))
				require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
				require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
			}
		}
		require.Equal(t, []int{200, 200, 429}, codes)
	})

	t.Run("keys are independent", func(t *testing.T) {
		h := httpx.RateLimitByIP(cfg)(okHandler())
		for _, ip := range []string{"10.0.0.1", "10.0.0.1", "10.0.0.2", "10.0.0.2"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = ip + ":1"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, ip)
		}
	})

	t.Run("empty key is not limited", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(cfg, func(*http.Request) string { return "" })(okHandler())
		for range 5 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimit{Requests: 5, Window: time.Minute, Burst: 5}

	t.Run("defaults", func(t *testing.T) {
		require.Equal(t, def, httpx.RateLimitFromEnv("PORTALTEST", def))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_PORTALTEST_REQUESTS", "50")
		t.Setenv("RATELIMIT_PORTALTEST_WINDOW_SEC", "10")
		t.Setenv("RATELIMIT_PORTALTEST_BURST", "7")
		require.Equal(t, httpx.RateLimit{Requests: 50, Window: 10 * time.Second, Burst: 7},
			httpx.RateLimitFromEnv("PORTALTEST", def))
	})

	t.Run("junk ignored", func(t *testing.T) {
		t.Setenv("RATELIMIT_PORTALTEST_REQUESTS", "lots")
		t.Setenv("RATELIMIT_PORTALTEST_BURST", "0")
		require.Equal(t, def, httpx.RateLimitFromEnv("PORTALTEST", def))
	})
}
