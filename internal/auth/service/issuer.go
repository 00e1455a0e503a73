package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/pkg/cryptox"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

// SigningProfile is how one token type is minted.
type SigningProfile struct {
	Signer jwtx.Signer

	// Previous signers are accepted for verification only, so tokens minted
	// before a key rotation keep working until they expire.
	Previous []jwtx.Signer

	TTL time.Duration
}

type IssuerConfig struct {
	Access  SigningProfile
	Refresh SigningProfile

	// Issuer and Audience are bound into every token when set.
	Issuer   string
	Audience []string

	// Now defaults to time.Now.
	Now func() time.Time

	// NewJTI defaults to cryptox.NewJTI.
	NewJTI func() (string, error)
}

type profile struct {
	signer jwtx.Signer
	keys   *jwtx.KeySet
	ttl    time.Duration
}

// TokenIssuer signs claim sets. Access and refresh tokens use independent
// keys; NewTokenIssuer refuses configurations where they share one.
type TokenIssuer struct {
	profiles map[domain.TokenType]profile
	issuer   string
	audience []string
	now      func() time.Time
	newJTI   func() (string, error)
}

func NewTokenIssuer(cfg IssuerConfig) (*TokenIssuer, error) {
	iss := &TokenIssuer{
		profiles: make(map[domain.TokenType]profile, 2),
		issuer:   cfg.Issuer,
		audience: slices.Clone(cfg.Audience),
		now:      cfg.Now,
		newJTI:   cfg.NewJTI,
	}
	if iss.now == nil {
		iss.now = time.Now
	}
	if iss.newJTI == nil {
		iss.newJTI = cryptox.NewJTI
	}

	for typ, sp := range map[domain.TokenType]SigningProfile{
		domain.TokenAccess:  cfg.Access,
		domain.TokenRefresh: cfg.Refresh,
	} {
		p, err := buildProfile(typ, sp)
		if err != nil {
			return nil, err
		}
		iss.profiles[typ] = p
	}

	if iss.profiles[domain.TokenAccess].keys.Overlaps(iss.profiles[domain.TokenRefresh].keys) {
		return nil, errors.New("access and refresh tokens must not share signing keys")
	}
	if cfg.Access.TTL >= cfg.Refresh.TTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}
	return iss, nil
}

func buildProfile(typ domain.TokenType, sp SigningProfile) (profile, error) {
	if sp.Signer == nil {
		return profile{}, fmt.Errorf("%s: no signer configured", typ)
	}
	if sp.TTL <= 0 {
		return profile{}, fmt.Errorf("%s: TTL must be positive", typ)
	}

	keys := jwtx.NewKeySet()
	for _, s := range append([]jwtx.Signer{sp.Signer}, sp.Previous...) {
		if s.Alg() != sp.Signer.Alg() {
			return profile{}, fmt.Errorf("%s: previous key %s uses %s, want %s", typ, s.KID(), s.Alg(), sp.Signer.Alg())
		}
		if err := keys.AddSigner(s); err != nil {
			return profile{}, fmt.Errorf("%s: %w", typ, err)
		}
	}
	return profile{signer: sp.Signer, keys: keys, ttl: sp.TTL}, nil
}

// Issue stamps jti, iat, nbf, exp, iss and aud onto c and signs it with the
// key for c.Type. Every failure is ErrGenerationFailed.
func (i *TokenIssuer) Issue(c domain.TokenClaims) (domain.Credential, error) {
	const op = "issue"

	p, ok := i.profiles[c.Type]
	if !ok {
		return domain.Credential{}, domain.Fail(op, domain.ErrGenerationFailed, fmt.Errorf("unknown token type %q", c.Type))
	}

	jti, err := i.newJTI()
	if err != nil {
		return domain.Credential{}, domain.Fail(op, domain.ErrGenerationFailed, err)
	}
	if jti == "" {
		return domain.Credential{}, domain.Fail(op, domain.ErrGenerationFailed, errors.New("empty jti"))
	}

	// JWT times have second precision; truncating keeps the credential and
	// the token in agreement.
	now := i.now().UTC().Truncate(time.Second)
	exp := now.Add(p.ttl)

	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   c.Subject,
			Issuer:    i.issuer,
			Audience:  slices.Clone(i.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Type:      string(c.Type),
		Username:  c.Username,
		SessionID: c.SessionID,
		Attrs:     jwtx.CloneAttributes(c.Attributes),
	}

	token, err := p.signer.Sign(claims)
	if err != nil {
		return domain.Credential{}, domain.Fail(op, domain.ErrGenerationFailed, err)
	}

	return domain.Credential{
		Token:     token,
		JTI:       jti,
		Type:      c.Type,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// TTL returns the configured lifetime for typ.
func (i *TokenIssuer) TTL(typ domain.TokenType) time.Duration {
	return i.profiles[typ].ttl
}

// JWKS publishes the public keys of asymmetric signers for both types.
func (i *TokenIssuer) JWKS() jwtx.JWKS {
	out := jwtx.JWKS{Keys: []jwtx.JWK{}}
	for _, typ := range []domain.TokenType{domain.TokenAccess, domain.TokenRefresh} {
		out.Keys = append(out.Keys, i.profiles[typ].keys.PublicJWKS().Keys...)
	}
	return out
}

// Ready validates both current signers.
func (i *TokenIssuer) Ready() error {
	for typ, p := range i.profiles {
		if err := p.signer.Validate(); err != nil {
			return fmt.Errorf("%s signer: %w", typ, err)
		}
	}
	return nil
}

func (i *TokenIssuer) verifier(typ domain.TokenType, leeway time.Duration, now func() time.Time) *jwtx.Verifier {
	p := i.profiles[typ]
	return jwtx.NewVerifier(p.signer.Alg(), p.keys, jwtx.VerifyOptions{
		Type:     string(typ),
		Issuer:   i.issuer,
		Audience: i.audience,
		Leeway:   leeway,
		Now:      now,
	})
}
