package httpx

import "net/http"

// Require lets a request through only when allow returns true. It must run
// after AuthnMiddleware.
func Require(allow func(*http.Request) bool, scope string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(r) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+scope+`"`)
				WriteError(w, http.StatusForbidden, "insufficient_scope", "missing "+scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
