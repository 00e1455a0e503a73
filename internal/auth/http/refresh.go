package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/httpx"
)

// RefreshHandler serves POST /v1/auth/refresh.
type RefreshHandler struct {
	Pairs *service.TokenPairService
}

// ServeHTTP godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a refresh token for a new pair in the same session. The presented refresh token is revoked first;
//	@Description	presenting it again fails. The token is read from the form body, falling back to the portal_refresh cookie.
//	@Tags			Session
//	@Accept			x-www-form-urlencoded,json
//	@Produce		json
//	@Param			refresh_token	formData	string						false	"Refresh token (optional when the cookie is sent)"
//	@Success		200				{object}	authsdk.TokenPairResponse	"New token pair"
//	@Failure		400				{object}	authsdk.ErrorResponse		"invalid_request"
//	@Failure		401				{object}	authsdk.ErrorResponse		"invalid_grant"
//	@Failure		503				{object}	authsdk.ErrorResponse		"temporarily_unavailable"
//	@Router			/v1/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	_ = httpx.Bind(r, &req)

	raw := req.RefreshToken
	if raw == "" {
		raw = httpx.CookieValue(r, h.Pairs.TransportFor(domain.TokenRefresh).Name)
	}
	if raw == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Pairs.Rotate(r.Context(), raw)
	if err != nil {
		// A dead refresh token means a dead session; stop the browser
		// from replaying it.
		if !errors.Is(err, domain.ErrRevocationFailed) && !errors.Is(err, domain.ErrVerificationFailed) {
			clearPairCookies(w, h.Pairs)
		}
		writeServiceError(w, r, err, authsdk.ErrInvalidGrant)
		return
	}

	setPairCookies(w, pair)
	httpx.WriteJSON(w, http.StatusOK, pairResponse(pair))
}
