package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/store"
	"github.com/aussiebroadwan/portalauth/pkg/cryptox"
	"github.com/aussiebroadwan/portalauth/pkg/idx"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultAccessCookie  = "portal_access"
	DefaultRefreshCookie = "portal_refresh"
	DefaultRefreshPath   = "/v1/auth"
)

// TransportConfig shapes the TransportOptions handed out with each pair.
type TransportConfig struct {
	AccessName  string
	RefreshName string
	AccessPath  string
	RefreshPath string
	Domain      string
	Secure      bool
	SameSite    string
}

func (c TransportConfig) withDefaults() TransportConfig {
	if c.AccessName == "" {
		c.AccessName = DefaultAccessCookie
	}
	if c.RefreshName == "" {
		c.RefreshName = DefaultRefreshCookie
	}
	if c.AccessPath == "" {
		c.AccessPath = "/"
	}
	if c.RefreshPath == "" {
		c.RefreshPath = DefaultRefreshPath
	}
	if c.SameSite == "" {
		c.SameSite = "strict"
	}
	return c
}

// TokenPairService is the entry point for login, logout and refresh.
type TokenPairService struct {
	Builder     ClaimsBuilder
	Issuer      *TokenIssuer
	Verifier    *TokenVerifier
	Revocations store.Revocations
	Transport   TransportConfig

	// Now stamps RevokedAt. Defaults to the issuer's clock.
	Now func() time.Time

	rotations singleflight.Group
}

func NewTokenPairService(
	iss *TokenIssuer,
	ver *TokenVerifier,
	revocations store.Revocations,
	transport TransportConfig,
) *TokenPairService {
	return &TokenPairService{
		Issuer:      iss,
		Verifier:    ver,
		Revocations: revocations,
		Transport:   transport.withDefaults(),
		Now:         iss.now,
	}
}

// IssuePair mints an access and a refresh credential for p under a new
// session id.
func (s *TokenPairService) IssuePair(ctx context.Context, p domain.Principal) (domain.TokenPair, error) {
	return s.issuePair(ctx, p, idx.New().String())
}

func (s *TokenPairService) issuePair(ctx context.Context, p domain.Principal, sid string) (domain.TokenPair, error) {
	pair := domain.TokenPair{SessionID: sid}

	for _, typ := range []domain.TokenType{domain.TokenAccess, domain.TokenRefresh} {
		claims, err := s.Builder.Build(p, typ)
		if err != nil {
			return domain.TokenPair{}, err
		}
		claims.SessionID = sid

		cred, err := s.Issuer.Issue(claims)
		if err != nil {
			slogx.FromContext(ctx).Error("token issue failed", "type", typ, "err", domain.Cause(err))
			return domain.TokenPair{}, err
		}

		if typ == domain.TokenAccess {
			pair.Access = cred
		} else {
			pair.Refresh = cred
		}
	}

	pair.AccessTransport = s.transportFor(domain.TokenAccess)
	pair.RefreshTransport = s.transportFor(domain.TokenRefresh)

	slogx.FromContext(ctx).Info("token pair issued", "sub", p.Subject, "sid", sid)
	return pair, nil
}

func (s *TokenPairService) transportFor(typ domain.TokenType) domain.TransportOptions {
	t := s.Transport.withDefaults()
	opts := domain.TransportOptions{
		Domain:   t.Domain,
		MaxAge:   s.Issuer.TTL(typ),
		HTTPOnly: true,
		Secure:   t.Secure,
		SameSite: t.SameSite,
	}
	if typ == domain.TokenRefresh {
		opts.Name, opts.Path = t.RefreshName, t.RefreshPath
	} else {
		opts.Name, opts.Path = t.AccessName, t.AccessPath
	}
	return opts
}

// TransportFor exposes the options so edges can expire cookies on logout.
func (s *TokenPairService) TransportFor(typ domain.TokenType) domain.TransportOptions {
	return s.transportFor(typ)
}

// Revoke adds a credential of either type to the revocation list. Its
// signature must check out but it may already be expired. An empty ownerID
// falls back to the credential's subject. Revoking twice is not an error.
func (s *TokenPairService) Revoke(ctx context.Context, raw, ownerID string) error {
	const op = "revoke"
	raw = strings.TrimSpace(raw)

	peek, err := jwtx.Peek(raw)
	if err != nil {
		return domain.Fail(op, domain.ErrInvalidFormat, err)
	}
	typ := domain.TokenType(peek.Type)
	if !typ.Valid() || peek.ID == "" || peek.ExpiresAt == nil {
		return domain.Fail(op, domain.ErrInvalidFormat, errors.New("credential lacks typ, jti or exp"))
	}

	claims, err := s.Verifier.parseSigned(raw, typ)
	if err != nil {
		return domain.Fail(op, domain.ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return domain.Fail(op, domain.ErrInvalidFormat, errors.New("credential lacks jti or exp"))
	}

	owner := ownerID
	if owner == "" {
		owner = claims.Subject
	}
	return s.insert(ctx, op, domain.RevocationRecord{
		JTI:       claims.ID,
		OwnerID:   owner,
		RevokedAt: s.Now().UTC(),
		ExpiresAt: claims.ExpiresAt.UTC(),
	}, typ)
}

// RevokePair revokes both halves of a pair. An empty half is skipped. Both
// are attempted; the first failure is returned.
func (s *TokenPairService) RevokePair(ctx context.Context, access, refresh, ownerID string) error {
	var first error
	for _, raw := range []string{access, refresh} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if err := s.Revoke(ctx, raw, ownerID); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Rotate exchanges a valid refresh credential for a new pair in the same
// session. The old credential is revoked before anything new is minted, so a
// failed revocation never yields two live refresh credentials. Concurrent
// rotations of one credential share a single result; the shared work is
// not cancelled when the first caller goes away.
func (s *TokenPairService) Rotate(ctx context.Context, oldRefresh string) (domain.TokenPair, error) {
	const op = "rotate"

	claims, err := s.Verifier.Verify(ctx, oldRefresh, domain.TokenRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	v, err, shared := s.rotations.Do(claims.JTI, func() (any, error) {
		ctx := context.WithoutCancel(ctx)

		// A rotation that finished after our Verify has already revoked it.
		revoked, err := s.Revocations.Contains(ctx, claims.JTI)
		if err != nil {
			return domain.TokenPair{}, domain.Fail(op, domain.ErrVerificationFailed, err)
		}
		if revoked {
			return domain.TokenPair{}, domain.Fail(op, domain.ErrTokenRevoked, nil)
		}

		rec := domain.RevocationRecord{
			JTI:       claims.JTI,
			OwnerID:   claims.Subject,
			RevokedAt: s.Now().UTC(),
			ExpiresAt: claims.ExpiresAt,
		}
		if err := s.insert(ctx, op, rec, domain.TokenRefresh); err != nil {
			return domain.TokenPair{}, err
		}

		sid := claims.SessionID
		if sid == "" {
			sid = idx.New().String()
		}
		return s.issuePair(ctx, claims.Principal(), sid)
	})
	if shared {
		slogx.FromContext(ctx).Info("concurrent refresh coalesced", "sub", claims.Subject)
	}
	if err != nil {
		return domain.TokenPair{}, err
	}
	return v.(domain.TokenPair), nil
}

func (s *TokenPairService) insert(ctx context.Context, op string, rec domain.RevocationRecord, typ domain.TokenType) error {
	log := slogx.FromContext(ctx)
	if err := s.Revocations.Insert(ctx, rec); err != nil {
		log.Error("revocation write failed", "type", typ, "err", err)
		return domain.Fail(op, domain.ErrRevocationFailed, err)
	}
	log.Info("credential revoked",
		"type", typ,
		"owner", rec.OwnerID,
		"jti_fp", cryptox.FingerprintToken(rec.JTI),
		"expires_at", rec.ExpiresAt,
	)
	return nil
}
