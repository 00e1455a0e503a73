package service

import (
	"strings"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
)

// ClaimsBuilder turns a directory principal into an unsigned claim set. It
// has no clock, randomness or I/O; the issuer stamps jti and times.
type ClaimsBuilder struct{}

// Build fails with ErrInvalidPrincipal when the subject is blank, carries
// surrounding whitespace, or the token type is unknown. The subject is used
// verbatim so it survives a sign and verify round trip unchanged. The
// returned attributes never alias the principal's.
func (ClaimsBuilder) Build(p domain.Principal, typ domain.TokenType) (domain.TokenClaims, error) {
	const op = "build claims"

	subject := p.Subject
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(subject) != subject {
		return domain.TokenClaims{}, domain.Fail(op, domain.ErrInvalidPrincipal, nil)
	}
	if !typ.Valid() {
		return domain.TokenClaims{}, domain.Fail(op, domain.ErrInvalidPrincipal, nil)
	}

	return domain.TokenClaims{
		Subject:    subject,
		Type:       typ,
		Username:   strings.TrimSpace(p.Username),
		Attributes: jwtx.CloneAttributes(p.Attributes),
	}, nil
}
