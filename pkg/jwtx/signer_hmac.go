package jwtx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HMACSigner signs with a shared secret. The secret doubles as the
// verification key, so it is never published.
type HMACSigner struct {
	kid    string
	secret []byte
	method *jwt.SigningMethodHMAC
}

func newHMACSigner(alg, kid string, secret []byte) (*HMACSigner, error) {
	var method *jwt.SigningMethodHMAC
	switch alg {
	case AlgorithmHS256:
		method = jwt.SigningMethodHS256
	case AlgorithmHS384:
		method = jwt.SigningMethodHS384
	case AlgorithmHS512:
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}

	// RFC 7518 3.2: the key must be at least as long as the hash output.
	if need := method.Hash.Size(); len(secret) < need {
		return nil, fmt.Errorf("jwtx: %s secret must be at least %d bytes, got %d", alg, need, len(secret))
	}

	if kid == "" {
		kid = DeriveKID("hs", secret)
	}

	return &HMACSigner{
		kid:    kid,
		secret: bytes.Clone(secret),
		method: method,
	}, nil
}

func (s *HMACSigner) Alg() string { return s.method.Alg() }
func (s *HMACSigner) KID() string { return s.kid }

func (s *HMACSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.secret)
}

func (s *HMACSigner) VerificationKey() any { return s.secret }

func (s *HMACSigner) Validate() error {
	if len(s.secret) == 0 {
		return errors.New("jwtx: empty HMAC secret")
	}
	return nil
}
