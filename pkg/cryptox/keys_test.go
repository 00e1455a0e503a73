package cryptox_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/aussiebroadwan/portalauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func parsePKCS8(t *testing.T, pemBytes []byte) any {
	t.Helper()

	block, _ := pem.Decode(pemBytes)
	require.NotNil(t, block)
	require.Equal(t, "PRIVATE KEY", block.Type)

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	return key
}

func TestGenerateKeys(t *testing.T) {
	t.Run("ed25519", func(t *testing.T) {
		pemBytes, err := cryptox.GenerateEd25519Key()
		require.NoError(t, err)

		key, ok := parsePKCS8(t, pemBytes).(ed25519.PrivateKey)
		require.True(t, ok)
		require.Len(t, key, ed25519.PrivateKeySize)
	})

	t.Run("es256", func(t *testing.T) {
		pemBytes, err := cryptox.GenerateES256Key()
		require.NoError(t, err)

		key, ok := parsePKCS8(t, pemBytes).(*ecdsa.PrivateKey)
		require.True(t, ok)
		require.Equal(t, "P-256", key.Curve.Params().Name)
	})

	t.Run("rsa", func(t *testing.T) {
		pemBytes, err := cryptox.GenerateRSAKey(2048)
		require.NoError(t, err)

		key, ok := parsePKCS8(t, pemBytes).(*rsa.PrivateKey)
		require.True(t, ok)
		require.Equal(t, 2048, key.N.BitLen())
	})

	t.Run("rsa too small", func(t *testing.T) {
		_, err := cryptox.GenerateRSAKey(1024)
		require.Error(t, err)
	})
}
