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

// LogoutHandler serves POST /v1/auth/logout.
type LogoutHandler struct {
	Pairs *service.TokenPairService
}

// ServeHTTP godoc
//
//	@Summary		Log out
//	@Description	Revokes the access token (bearer header or cookie) and the refresh token (form body or cookie) and expires both cookies.
//	@Description	Unknown, malformed or already revoked tokens are ignored so the call is idempotent. Only a failed write to the
//	@Description	revocation list is reported, since the tokens would otherwise remain live.
//	@Tags			Session
//	@Accept			x-www-form-urlencoded,json
//	@Produce		json
//	@Param			refresh_token	formData	string					false	"Refresh token"
//	@Success		200				"Logged out"
//	@Failure		503				{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Router			/v1/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.LogoutRequest
	_ = httpx.Bind(r, &req)

	access, ok := httpx.BearerToken(r)
	if !ok {
		access = httpx.CookieValue(r, h.Pairs.TransportFor(domain.TokenAccess).Name)
	}
	refresh := req.RefreshToken
	if refresh == "" {
		refresh = httpx.CookieValue(r, h.Pairs.TransportFor(domain.TokenRefresh).Name)
	}

	clearPairCookies(w, h.Pairs)

	if err := h.Pairs.RevokePair(ctx, access, refresh, ""); err != nil {
		if errors.Is(err, domain.ErrRevocationFailed) {
			writeServiceError(w, r, err, authsdk.ErrInvalidToken)
			return
		}
		slogx.FromContext(ctx).Info("logout with unusable token", "kind", domain.KindOf(err))
	}

	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
