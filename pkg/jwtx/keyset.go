package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/subtle"
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet maps key ids to verification keys for one token type. It usually
// holds the current signer's key plus any previous keys kept around so tokens
// minted before a rotation still verify until they expire.
// Safe for concurrent use.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]any
	jwks []JWK
}

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]any)}
}

// AddSigner registers the signer's verification key under its kid. Public
// keys of asymmetric signers are also recorded for JWKS publishing.
func (k *KeySet) AddSigner(s Signer) error {
	if err := s.Validate(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, dup := k.keys[s.KID()]; dup {
		return errors.New("jwtx: duplicate kid " + s.KID())
	}
	k.keys[s.KID()] = s.VerificationKey()
	if p, ok := s.(Publisher); ok {
		k.jwks = append(k.jwks, p.PublicJWK())
	}
	return nil
}

// Get returns the verification key for kid.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if key, ok := k.keys[kid]; ok {
		return key, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS returns a snapshot of the publishable keys.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	keys := make([]JWK, len(k.jwks))
	copy(keys, k.jwks)
	return JWKS{Keys: keys}
}

func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}

// Overlaps reports whether any key in k is also present in other. Used at
// startup to refuse configurations where two token types share a key.
func (k *KeySet) Overlaps(other *KeySet) bool {
	if k == other {
		return k.IsReady()
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	for _, a := range k.keys {
		for _, b := range other.keys {
			if SameKey(a, b) {
				return true
			}
		}
	}
	return false
}

// SameKey compares two verification keys by material.
func SameKey(a, b any) bool {
	switch ak := a.(type) {
	case []byte:
		bk, ok := b.([]byte)
		return ok && subtle.ConstantTimeCompare(ak, bk) == 1
	case *rsa.PublicKey:
		return ak.Equal(b)
	case *ecdsa.PublicKey:
		return ak.Equal(b)
	case ed25519.PublicKey:
		return ak.Equal(b)
	}
	return false
}
