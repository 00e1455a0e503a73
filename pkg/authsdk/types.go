package authsdk

import "github.com/aussiebroadwan/portalauth/pkg/jwtx"

// ErrorResponse is the wire form of OAuth2Error.
type ErrorResponse struct {
	Error            string `json:"error" example:"invalid_grant"`
	ErrorDescription string `json:"error_description" example:"invalid credentials"`
}

// ============================================================================
// Token Types
// ============================================================================

// LoginRequest is accepted as JSON or as a urlencoded form.
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"correct horse battery staple"`
}

// RefreshRequest carries the refresh token when no cookie is available.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// LogoutRequest carries the refresh token half of the pair. The access
// token travels in the Authorization header or its cookie.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenRequest names a token for revocation or introspection (RFC 7009,
// RFC 7662).
type TokenRequest struct {
	Token         string `json:"token"`
	TokenTypeHint string `json:"token_type_hint,omitempty" enums:"access_token,refresh_token"`
}

// TokenPairResponse is returned by login and refresh. The same tokens are
// also set as HttpOnly cookies.
type TokenPairResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type" example:"Bearer"`
	ExpiresIn        int64  `json:"expires_in" example:"900"`
	RefreshExpiresIn int64  `json:"refresh_expires_in" example:"604800"`
	SessionID        string `json:"session_id"`
}

// IntrospectionResponse follows RFC 7662. Inactive tokens carry only Active.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	Sub        string                    `json:"sub,omitempty"`
	Username   string                    `json:"username,omitempty"`
	TokenType  string                    `json:"token_type,omitempty"`
	Typ        string                    `json:"typ,omitempty"`
	Exp        int64                     `json:"exp,omitempty"`
	Iat        int64                     `json:"iat,omitempty"`
	Nbf        int64                     `json:"nbf,omitempty"`
	Aud        []string                  `json:"aud,omitempty"`
	Iss        string                    `json:"iss,omitempty"`
	Jti        string                    `json:"jti,omitempty"`
	SessionID  string                    `json:"sid,omitempty"`
	Attributes map[string]jwtx.Attribute `json:"attrs,omitempty" swaggertype:"object"`
}

// MeResponse describes the caller's own access token.
type MeResponse struct {
	Subject    string                    `json:"sub"`
	Username   string                    `json:"username,omitempty"`
	SessionID  string                    `json:"sid,omitempty"`
	IssuedAt   int64                     `json:"iat"`
	ExpiresAt  int64                     `json:"exp"`
	Attributes map[string]jwtx.Attribute `json:"attrs,omitempty" swaggertype:"object"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz; only readyz fills Checks.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	// Store is the revocation list.
	Store  string `json:"store"`
	Signer string `json:"signer"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse lists the public halves of asymmetric signing keys. It is
// empty when both token types use HMAC.
type JWKSResponse jwtx.JWKS
