package httpx

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/portalauth/pkg/slogx"
)

// VerifyFunc checks a raw credential and returns its claims.
type VerifyFunc[C any] func(ctx context.Context, raw string) (C, error)

type AuthnOptions[C any] struct {
	// CookieName is consulted when no Authorization header is sent.
	CookieName string

	// Subject extracts the subject used for logging and per-user limits.
	Subject func(C) string

	// Internal reports errors that are server faults rather than bad
	// credentials. Those get a 500 instead of a 401.
	Internal func(error) bool
}

// AuthnMiddleware requires a verified access token on every request. The
// claims are placed on the context, see ClaimsFromContext.
func AuthnMiddleware[C any](verify VerifyFunc[C], opts AuthnOptions[C]) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok && opts.CookieName != "" {
				raw = CookieValue(r, opts.CookieName)
			}
			if raw == "" {
				WriteBearerError(w, "missing bearer token")
				return
			}

			claims, err := verify(ctx, raw)
			if err != nil {
				if opts.Internal != nil && opts.Internal(err) {
					log.Error("token verification unavailable", "err", err)
					WriteError(w, http.StatusInternalServerError, "server_error", "verification unavailable")
					return
				}
				log.Info("token rejected", "err", err)
				WriteBearerError(w, "please re-authenticate")
				return
			}

			ctx = withClaims(ctx, claims)
			if opts.Subject != nil {
				sub := opts.Subject(claims)
				ctx = WithSubject(ctx, sub)
				ctx = slogx.With(ctx, "sub", sub)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteBearerError writes an RFC 6750 invalid_token response.
func WriteBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
