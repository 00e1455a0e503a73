package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
)

// writeServiceError maps a service error kind onto the wire. rejected is what
// the caller sees when the credential itself is bad; it differs between the
// refresh endpoint (invalid_grant) and resource endpoints (invalid_token).
// The precise kind is only ever logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, rejected *authsdk.OAuth2Error) {
	log := slogx.FromContext(r.Context())
	kind := domain.KindOf(err)

	switch {
	case errors.Is(kind, domain.ErrInvalidCredentials),
		errors.Is(kind, domain.ErrInvalidToken),
		errors.Is(kind, domain.ErrTokenExpired),
		errors.Is(kind, domain.ErrTokenRevoked),
		errors.Is(kind, domain.ErrInvalidFormat):
		log.Info("credential rejected", "kind", kind)
		rejected.WriteError(w)

	case errors.Is(kind, domain.ErrRevocationFailed):
		log.Error("revocation store write failed", "err", domain.Cause(err))
		authsdk.ErrUnavailable.WriteError(w)

	default:
		log.Error("request failed", "kind", kind, "err", domain.Cause(err))
		authsdk.ErrServerError.WriteError(w)
	}
}
