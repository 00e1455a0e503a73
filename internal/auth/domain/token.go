package domain

import (
	"time"

	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
)

// TokenType distinguishes the two halves of a pair.
type TokenType string

const (
	TokenAccess  TokenType = jwtx.TypeAccess
	TokenRefresh TokenType = jwtx.TypeRefresh
)

func (t TokenType) Valid() bool {
	return t == TokenAccess || t == TokenRefresh
}

func (t TokenType) String() string { return string(t) }

// Attribute is a directory value: a single string or a list of strings.
type Attribute = jwtx.Attribute

// Principal is what the directory tells us about an authenticated user.
type Principal struct {
	Subject    string
	Username   string
	Attributes map[string]Attribute
}

// HasAttr reports whether attribute name holds value (or contains it, for lists).
func (p Principal) HasAttr(name, value string) bool {
	a, ok := p.Attributes[name]
	return ok && a.Contains(value)
}

// TokenClaims is the claim set inside a credential. Once signed it is never
// mutated; copies handed out by the service own their attribute map.
type TokenClaims struct {
	Subject    string
	JTI        string
	Type       TokenType
	SessionID  string
	IssuedAt   time.Time
	NotBefore  time.Time
	ExpiresAt  time.Time
	Audience   []string
	Issuer     string
	Username   string
	Attributes map[string]Attribute
}

// Principal recovers the principal a claim set was built from.
func (c TokenClaims) Principal() Principal {
	return Principal{
		Subject:    c.Subject,
		Username:   c.Username,
		Attributes: jwtx.CloneAttributes(c.Attributes),
	}
}

// HasAttr mirrors Principal.HasAttr.
func (c TokenClaims) HasAttr(name, value string) bool {
	a, ok := c.Attributes[name]
	return ok && a.Contains(value)
}

// Credential is a signed token plus the data callers need to correlate it
// without parsing.
type Credential struct {
	Token     string
	JTI       string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TTL is the credential's total lifetime.
func (c Credential) TTL() time.Duration { return c.ExpiresAt.Sub(c.IssuedAt) }

// TransportOptions recommends how a client should hold a credential. The
// token core never writes cookies itself.
type TransportOptions struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   time.Duration
	HTTPOnly bool
	Secure   bool
	SameSite string // "strict", "lax" or "none"
}

// TokenPair is the result of a login or a rotation. Both members share a
// subject and session id but nothing else.
type TokenPair struct {
	SessionID        string
	Access           Credential
	Refresh          Credential
	AccessTransport  TransportOptions
	RefreshTransport TransportOptions
}

// RevocationRecord marks one jti as revoked until its credential would have
// expired anyway.
type RevocationRecord struct {
	JTI       string
	OwnerID   string
	RevokedAt time.Time
	ExpiresAt time.Time
}

// Evictable reports whether the record is past expiry plus retention.
func (r RevocationRecord) Evictable(now time.Time, retention time.Duration) bool {
	return r.ExpiresAt.Add(retention).Before(now)
}
