package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/internal/auth/store"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/httpx"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe. Pings the revocation store and validates the signing keys.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Revocations,
	issuer *service.TokenIssuer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())
		checks := &authsdk.HealthChecks{
			Store:  "ok",
			Signer: "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		// Details go to the log, not to unauthenticated callers.
		if err := st.Ping(r.Context()); err != nil {
			log.Warn("readiness: revocation store unreachable", "err", err)
			checks.Store = "error"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := issuer.Ready(); err != nil {
			log.Error("readiness: signer invalid", "err", err)
			checks.Signer = "error"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
