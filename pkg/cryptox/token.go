package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token sizes in bytes before encoding.
const (
	// TokenSize128 is the minimum size for credential identifiers (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 is used for HMAC secrets (43 chars base64url).
	TokenSize256 = 32
	// TokenSize512 is for HS512 secrets (86 chars base64url).
	TokenSize512 = 64
)

// GenerateToken returns size random bytes from crypto/rand, base64url encoded
// without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewJTI returns a fresh credential identifier carrying 128 bits of entropy.
func NewJTI() (string, error) {
	return GenerateToken(TokenSize128)
}

// MustGenerateToken is GenerateToken for init paths where failure is fatal anyway.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(err)
	}
	return token
}

// FingerprintToken returns a SHA-256 digest of token, base64url encoded. Logs
// carry the fingerprint so a raw credential never lands in a log line.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
