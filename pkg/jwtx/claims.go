package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetimes. Deployments override both through configuration.
const (
	// DefaultAccessTokenTTL keeps access tokens short so a leaked one ages out fast.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is one week.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the signed payload. The registered claims form a fixed core that
// is always present on tokens we mint; directory attributes ride along in
// Attrs so they can never shadow a registered claim.
type Claims struct {
	jwt.RegisteredClaims

	// Type is "access" or "refresh".
	Type string `json:"typ"`

	// Username for display and audit.
	Username string `json:"username,omitempty"`

	// SessionID ties an access/refresh pair together across rotations.
	SessionID string `json:"sid,omitempty"`

	// Attrs holds directory-derived attributes such as roles or department.
	Attrs map[string]Attribute `json:"attrs,omitempty"`
}

// ValidateIssuer checks the iss claim. An empty expectation is not enforced.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience passes when at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateTime checks exp and nbf against now, widened by leeway. A token is
// expired from the instant now reaches exp. A missing exp is an invalid claim,
// not an immortal token.
func (c *Claims) ValidateTime(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
