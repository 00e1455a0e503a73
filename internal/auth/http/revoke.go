package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/httpx"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
)

// RevokeHandler serves POST /v1/auth/revoke in the manner of RFC 7009. It
// revokes any token of either type and is restricted to administrators.
// Tokens that cannot be revoked because they are garbage still get 200 so
// the endpoint cannot be used to probe tokens.
type RevokeHandler struct {
	Pairs *service.TokenPairService
}

// ServeHTTP godoc
//
//	@Summary		Revoke a token
//	@Description	Adds an access or refresh token to the revocation list. Requires the admin role.
//	@Description	The endpoint is idempotent and returns 200 OK for invalid or unknown tokens.
//	@Tags			Tokens
//	@Accept			x-www-form-urlencoded,json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			token			formData	string					true	"The token to revoke"
//	@Param			token_type_hint	formData	string					false	"Ignored; the type is read from the token"	Enums(access_token, refresh_token)
//	@Success		200				"Token revoked (or was unusable)"
//	@Failure		400				{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401				{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403				{object}	authsdk.ErrorResponse	"insufficient_scope"
//	@Failure		503				{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Router			/v1/auth/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.TokenRequest
	if err := httpx.Bind(r, &req); err != nil || req.Token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.Pairs.Revoke(ctx, req.Token, "")
	switch {
	case err == nil:
		log.Info("admin revoked token")
	case errors.Is(err, domain.ErrInvalidFormat), errors.Is(err, domain.ErrInvalidToken):
		log.Info("admin revoke ignored", "kind", domain.KindOf(err))
	default:
		writeServiceError(w, r, err, authsdk.ErrInvalidRequest)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
