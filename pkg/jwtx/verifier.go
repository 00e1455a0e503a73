package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrAlgMismatch    = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID     = errors.New("jwtx: unknown kid")
	ErrInvalidSig     = errors.New("jwtx: invalid signature")
	ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")

	ErrTokenType    = errors.New("jwtx: token type mismatch")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// VerifyOptions captures what a verifier expects of a token.
type VerifyOptions struct {
	// Type the token must carry in "typ". Empty means "don't care".
	Type string

	// Issuer the token must have. Empty means "don't care".
	Issuer string

	// Audience values, at least one of which must be present.
	Audience []string

	// Leeway allows small clock skew on exp/nbf.
	Leeway time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Verifier checks tokens signed with one algorithm against one KeySet.
type Verifier struct {
	alg  string
	keys *KeySet
	opts VerifyOptions
}

func NewVerifier(alg string, keys *KeySet, opts VerifyOptions) *Verifier {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Verifier{alg: alg, keys: keys, opts: opts}
}

// Parse checks structure, algorithm, kid and signature, and the typ claim,
// but ignores every time-based claim. Revocation uses it directly because an
// expired token must still be revocable.
func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{v.alg}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, v.keyFunc)
	if err != nil {
		return nil, mapParseError(err)
	}
	if !token.Valid {
		return nil, ErrInvalidSig
	}

	if v.opts.Type != "" && claims.Type != v.opts.Type {
		return nil, ErrTokenType
	}
	return claims, nil
}

// Verify is Parse followed by exp/nbf, issuer and audience checks, in that
// order. Expiry is reported before any other claim mismatch.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	claims, err := v.Parse(tokenStr)
	if err != nil {
		return nil, err
	}

	if err := claims.ValidateTime(v.opts.Now().UTC(), v.opts.Leeway); err != nil {
		return nil, err
	}
	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != v.alg {
		return nil, ErrAlgMismatch
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrUnknownKID
	}
	key, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
	}
	return key, nil
}

// Peek decodes claims without checking the signature. Only use the result to
// decide which Verifier to run next.
func Peek(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKID), errors.Is(err, ErrAlgMismatch):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	}
	return fmt.Errorf("jwtx: parse: %w", err)
}
