package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/httpx"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
)

// IntrospectHandler serves POST /v1/auth/introspect following RFC 7662.
type IntrospectHandler struct {
	Verifier *service.TokenVerifier
}

// ServeHTTP godoc
//
//	@Summary		Token introspection
//	@Description	Reports whether a token is active and, if so, its claims (RFC 7662). Inactive tokens yield {"active": false}
//	@Description	with no reason given.
//	@Tags			Tokens
//	@Accept			x-www-form-urlencoded,json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			token			formData	string							true	"The token to introspect"
//	@Param			token_type_hint	formData	string							false	"Hint about token type"	Enums(access_token, refresh_token)
//	@Success		200				{object}	authsdk.IntrospectionResponse	"Introspection result"
//	@Failure		400				{object}	authsdk.ErrorResponse			"invalid_request"
//	@Failure		401				{object}	authsdk.ErrorResponse			"invalid_token"
//	@Failure		500				{object}	authsdk.ErrorResponse			"server_error"
//	@Router			/v1/auth/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.TokenRequest
	if err := httpx.Bind(r, &req); err != nil || req.Token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	claims, err := h.Verifier.Verify(ctx, req.Token, expectedType(req))
	if err != nil {
		if errors.Is(err, domain.ErrVerificationFailed) {
			writeServiceError(w, r, err, authsdk.ErrInvalidToken)
			return
		}
		slogx.FromContext(ctx).Debug("introspected token inactive", "kind", domain.KindOf(err))
		httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{
		Active:     true,
		Sub:        claims.Subject,
		Username:   claims.Username,
		TokenType:  "Bearer",
		Typ:        claims.Type.String(),
		Exp:        unixOrZero(claims.ExpiresAt),
		Iat:        unixOrZero(claims.IssuedAt),
		Nbf:        unixOrZero(claims.NotBefore),
		Aud:        claims.Audience,
		Iss:        claims.Issuer,
		Jti:        claims.JTI,
		SessionID:  claims.SessionID,
		Attributes: claims.Attributes,
	})
}

// expectedType honors the hint, then the unverified typ claim. The verifier
// re-checks typ against the signature either way.
func expectedType(req authsdk.TokenRequest) domain.TokenType {
	switch req.TokenTypeHint {
	case "access_token":
		return domain.TokenAccess
	case "refresh_token":
		return domain.TokenRefresh
	}
	if peek, err := jwtx.Peek(req.Token); err == nil && domain.TokenType(peek.Type) == domain.TokenRefresh {
		return domain.TokenRefresh
	}
	return domain.TokenAccess
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
