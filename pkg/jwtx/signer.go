package jwtx

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// Supported signing algorithms.
const (
	AlgorithmHS256 = "HS256"
	AlgorithmHS384 = "HS384"
	AlgorithmHS512 = "HS512"
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// Signer is anything that can sign our claims.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)

	// VerificationKey is what a Verifier needs to check signatures made by
	// this signer: the shared secret for HMAC, the public key otherwise.
	VerificationKey() any

	Validate() error
}

// Publisher is implemented by signers whose verification key is safe to
// publish in a JWKS.
type Publisher interface {
	PublicJWK() JWK
}

// IsSymmetric reports whether alg is an HMAC algorithm.
func IsSymmetric(alg string) bool {
	switch alg {
	case AlgorithmHS256, AlgorithmHS384, AlgorithmHS512:
		return true
	}
	return false
}

// NewSigner builds a signer for alg. For HMAC algorithms material is the raw
// secret; for everything else it is a PEM encoded private key. An empty kid
// is derived from the key material.
func NewSigner(alg, kid string, material []byte) (Signer, error) {
	if len(material) == 0 {
		return nil, fmt.Errorf("jwtx: empty key material for %s", alg)
	}

	if IsSymmetric(alg) {
		return newHMACSigner(alg, kid, material)
	}

	switch alg {
	case AlgorithmRS256, AlgorithmES256, AlgorithmEdDSA:
		return newPEMSigner(alg, kid, material)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
}

// DeriveKID returns a short stable identifier for key material, prefixed so
// keys for different token types never share a kid.
func DeriveKID(prefix string, material []byte) string {
	sum := sha256.Sum256(material)
	id := base64.RawURLEncoding.EncodeToString(sum[:9])
	if prefix == "" {
		return id
	}
	return strings.ToLower(prefix) + "-" + id
}
