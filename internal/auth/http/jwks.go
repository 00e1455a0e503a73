package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/httpx"
)

const jwksMaxAge = 5 * time.Minute

// JWKSHandler exposes the public halves of the signing keys. HMAC keys are
// never published. Verifiers may cache the set for a few minutes; a rotated
// key stays in the set as a previous key for at least that long.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify JWTs signed with asymmetric keys.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(issuer *service.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSONCached(w, http.StatusOK, jwksMaxAge, authsdk.JWKSResponse(issuer.JWKS()))
	}
}
