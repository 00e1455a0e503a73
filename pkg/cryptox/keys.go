package cryptox

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// MinRSABits is the smallest RSA modulus we are willing to generate.
const MinRSABits = 2048

// GenerateEd25519Key returns a new Ed25519 private key as PKCS8 PEM.
func GenerateEd25519Key() ([]byte, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate Ed25519 key: %w", err)
	}
	return encodePKCS8(key)
}

// GenerateES256Key returns a new ECDSA P-256 private key as PKCS8 PEM.
func GenerateES256Key() ([]byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate P-256 key: %w", err)
	}
	return encodePKCS8(key)
}

// GenerateRSAKey returns a new RSA private key as PKCS8 PEM.
func GenerateRSAKey(bits int) ([]byte, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("cryptox: RSA key size %d below minimum %d", bits, MinRSABits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate RSA key: %w", err)
	}
	return encodePKCS8(key)
}

func encodePKCS8(key any) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal PKCS8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
