package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// PEMSigner signs with an asymmetric private key loaded from PEM. One type
// covers RS256, ES256 and EdDSA; the algorithm decides which key shape is
// accepted.
type PEMSigner struct {
	kid    string
	key    crypto.Signer
	method jwt.SigningMethod
}

func newPEMSigner(alg, kid string, pemKey []byte) (*PEMSigner, error) {
	key, err := parsePrivateKey(pemKey)
	if err != nil {
		return nil, err
	}

	var method jwt.SigningMethod
	switch alg {
	case AlgorithmRS256:
		k, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("jwtx: RS256 needs an RSA key, got %T", key)
		}
		if k.N.BitLen() < 2048 {
			return nil, fmt.Errorf("jwtx: RSA key too small (%d bits)", k.N.BitLen())
		}
		method = jwt.SigningMethodRS256
	case AlgorithmES256:
		k, ok := key.(*ecdsa.PrivateKey)
		if !ok || k.Curve != elliptic.P256() {
			return nil, errors.New("jwtx: ES256 needs an ECDSA P-256 key")
		}
		method = jwt.SigningMethodES256
	case AlgorithmEdDSA:
		if _, ok := key.(ed25519.PrivateKey); !ok {
			return nil, fmt.Errorf("jwtx: EdDSA needs an Ed25519 key, got %T", key)
		}
		method = jwt.SigningMethodEdDSA
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}

	if kid == "" {
		der, err := x509.MarshalPKIXPublicKey(key.Public())
		if err != nil {
			return nil, fmt.Errorf("jwtx: marshal public key: %w", err)
		}
		kid = DeriveKID(alg, der)
	}

	return &PEMSigner{kid: kid, key: key, method: method}, nil
}

// parsePrivateKey accepts PKCS8, PKCS1 (RSA) and SEC1 (EC) blocks.
func parsePrivateKey(pemKey []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: no PEM block found")
	}

	var (
		parsed any
		err    error
	)
	switch block.Type {
	case "PRIVATE KEY":
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		parsed, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		parsed, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse %s: %w", block.Type, err)
	}

	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("jwtx: %T cannot sign", parsed)
	}
	return signer, nil
}

func (s *PEMSigner) Alg() string { return s.method.Alg() }
func (s *PEMSigner) KID() string { return s.kid }

func (s *PEMSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *PEMSigner) VerificationKey() any { return s.key.Public() }

// PublicJWK returns the key in the form published at /.well-known/jwks.json.
func (s *PEMSigner) PublicJWK() JWK {
	switch pub := s.key.Public().(type) {
	case *rsa.PublicKey:
		return NewRSAJWK(s.kid, "sig", s.Alg(), pub)
	case *ecdsa.PublicKey:
		return NewES256JWK(s.kid, "sig", s.Alg(), pub)
	case ed25519.PublicKey:
		return NewEd25519JWK(s.kid, "sig", s.Alg(), pub)
	}
	return JWK{Kid: s.kid, Alg: s.Alg()}
}

func (s *PEMSigner) Validate() error {
	if s.key == nil {
		return errors.New("jwtx: nil private key")
	}
	if k, ok := s.key.(ed25519.PrivateKey); ok && len(k) != ed25519.PrivateKeySize {
		return errors.New("jwtx: invalid Ed25519 private key size")
	}
	return nil
}
