package httpx

import "context"

type ctxKey string

const (
	ctxKeySubject ctxKey = "subject"
	ctxKeyClaims  ctxKey = "claims"
)

// WithSubject stores the authenticated subject for downstream handlers and
// per-user rate limiting.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeySubject, subject)
}

// SubjectFromContext returns "" for anonymous requests.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeySubject).(string)
	return s
}

func withClaims[C any](ctx context.Context, c C) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, c)
}

// ClaimsFromContext returns the verified claims put there by AuthnMiddleware.
func ClaimsFromContext[C any](ctx context.Context) (C, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(C)
	return c, ok
}
