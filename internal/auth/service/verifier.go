package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/store"
	"github.com/aussiebroadwan/portalauth/pkg/cryptox"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
)

type VerifierOptions struct {
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration

	// Now defaults to the issuer's clock.
	Now func() time.Time
}

// TokenVerifier checks presented credentials: signature, then time and
// issuer/audience, then the revocation list. It never writes to the store.
type TokenVerifier struct {
	verifiers   map[domain.TokenType]*jwtx.Verifier
	revocations store.Revocations
}

func NewTokenVerifier(iss *TokenIssuer, revocations store.Revocations, opts VerifierOptions) *TokenVerifier {
	now := opts.Now
	if now == nil {
		now = iss.now
	}
	return &TokenVerifier{
		verifiers: map[domain.TokenType]*jwtx.Verifier{
			domain.TokenAccess:  iss.verifier(domain.TokenAccess, opts.Leeway, now),
			domain.TokenRefresh: iss.verifier(domain.TokenRefresh, opts.Leeway, now),
		},
		revocations: revocations,
	}
}

// Verify returns the claims of a valid, unexpired, unrevoked credential of
// the expected type. Errors are *domain.Error values; see domain.KindOf.
func (v *TokenVerifier) Verify(ctx context.Context, raw string, expected domain.TokenType) (domain.TokenClaims, error) {
	const op = "verify"
	log := slogx.FromContext(ctx)

	jv, ok := v.verifiers[expected]
	if !ok {
		return domain.TokenClaims{}, domain.Fail(op, domain.ErrVerificationFailed, errors.New("unknown token type "+string(expected)))
	}

	claims, err := jv.Verify(strings.TrimSpace(raw))
	if err != nil {
		kind := classify(err)
		log.Debug("credential rejected", "type", expected, "kind", kind, "err", err)
		return domain.TokenClaims{}, domain.Fail(op, kind, err)
	}

	if claims.ID == "" {
		return domain.TokenClaims{}, domain.Fail(op, domain.ErrInvalidToken, errors.New("missing jti"))
	}

	revoked, err := v.revocations.Contains(ctx, claims.ID)
	if err != nil {
		log.Warn("revocation lookup failed", "err", err)
		return domain.TokenClaims{}, domain.Fail(op, domain.ErrVerificationFailed, err)
	}
	if revoked {
		log.Info("revoked credential presented", "type", expected, "sub", claims.Subject, "jti_fp", cryptox.FingerprintToken(claims.ID))
		return domain.TokenClaims{}, domain.Fail(op, domain.ErrTokenRevoked, nil)
	}

	return toDomain(claims), nil
}

// VerifyAccess is Verify for access tokens, shaped for httpx.AuthnMiddleware.
func (v *TokenVerifier) VerifyAccess(ctx context.Context, raw string) (domain.TokenClaims, error) {
	return v.Verify(ctx, raw, domain.TokenAccess)
}

// parseSigned checks signature and type but no time claims.
func (v *TokenVerifier) parseSigned(raw string, typ domain.TokenType) (*jwtx.Claims, error) {
	jv, ok := v.verifiers[typ]
	if !ok {
		return nil, errors.New("unknown token type " + string(typ))
	}
	return jv.Parse(raw)
}

// classify maps jwtx errors onto the domain taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwtx.ErrMalformed),
		errors.Is(err, jwtx.ErrInvalidSig),
		errors.Is(err, jwtx.ErrUnknownKID),
		errors.Is(err, jwtx.ErrAlgMismatch),
		errors.Is(err, jwtx.ErrTokenType),
		errors.Is(err, jwtx.ErrIssuer),
		errors.Is(err, jwtx.ErrAudience),
		errors.Is(err, jwtx.ErrNotYetValid),
		errors.Is(err, jwtx.ErrInvalidClaim):
		return domain.ErrInvalidToken
	}
	return domain.ErrVerificationFailed
}

func toDomain(c *jwtx.Claims) domain.TokenClaims {
	out := domain.TokenClaims{
		Subject:    c.Subject,
		JTI:        c.ID,
		Type:       domain.TokenType(c.Type),
		SessionID:  c.SessionID,
		Issuer:     c.Issuer,
		Audience:   []string(c.Audience),
		Username:   c.Username,
		Attributes: jwtx.CloneAttributes(c.Attrs),
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.UTC()
	}
	if c.NotBefore != nil {
		out.NotBefore = c.NotBefore.UTC()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.UTC()
	}
	return out
}
