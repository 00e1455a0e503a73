package http

import (
	"net/http"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/httpx"
)

// MeHandler godoc
//
//	@Summary		Current session
//	@Description	Returns the verified claims of the caller's access token.
//	@Tags			Session
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MeResponse		"Verified claims"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/auth/me [get].
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext[domain.TokenClaims](r.Context())
		if !ok {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
			Subject:    claims.Subject,
			Username:   claims.Username,
			SessionID:  claims.SessionID,
			IssuedAt:   claims.IssuedAt.Unix(),
			ExpiresAt:  claims.ExpiresAt.Unix(),
			Attributes: claims.Attributes,
		})
	}
}
