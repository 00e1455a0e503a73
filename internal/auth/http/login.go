package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/portalauth/internal/auth/directory"
	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/httpx"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
)

// LoginHandler serves POST /v1/auth/login.
type LoginHandler struct {
	Directory directory.Directory
	Pairs     *service.TokenPairService
}

// ServeHTTP godoc
//
//	@Summary		Log in
//	@Description	Checks a username and password against the directory and issues a new access/refresh pair.
//	@Description	Both tokens are returned in the body and set as HttpOnly cookies.
//	@Tags			Session
//	@Accept			x-www-form-urlencoded,json
//	@Produce		json
//	@Param			username	formData	string						true	"Directory username"
//	@Param			password	formData	string						true	"Password"
//	@Success		200			{object}	authsdk.TokenPairResponse	"New token pair"
//	@Failure		400			{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		401			{object}	authsdk.ErrorResponse		"invalid_grant"
//	@Failure		429			{object}	authsdk.ErrorResponse		"rate_limit_exceeded"
//	@Failure		500			{object}	authsdk.ErrorResponse		"error, error_description"
//	@Header			200			{string}	Set-Cookie					"portal_access, portal_refresh"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.LoginRequest
	if err := httpx.Bind(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	principal, err := h.Directory.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			authsdk.ErrInvalidGrant.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("directory unavailable", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	pair, err := h.Pairs.IssuePair(ctx, principal)
	if err != nil {
		writeServiceError(w, r, err, authsdk.ErrInvalidGrant)
		return
	}

	setPairCookies(w, pair)
	httpx.WriteJSON(w, http.StatusOK, pairResponse(pair))
}
