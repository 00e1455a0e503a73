package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"128-bit token", TokenSize128},
		{"256-bit token", TokenSize256},
		{"512-bit token", TokenSize512},
		{"custom size", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)

			raw, err := base64.RawURLEncoding.DecodeString(token)
			require.NoError(t, err)
			require.Len(t, raw, tt.size)

			other, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, other)
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestNewJTI(t *testing.T) {
	jti, err := NewJTI()
	require.NoError(t, err)
	require.Len(t, jti, 22)

	raw, err := base64.RawURLEncoding.DecodeString(jti)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw)*8, 128)
}

func TestMustGenerateToken_Panics(t *testing.T) {
	require.NotEmpty(t, MustGenerateToken(TokenSize256))
	require.Panics(t, func() { MustGenerateToken(0) })
}

func TestFingerprintToken(t *testing.T) {
	a := FingerprintToken("header.payload.signature")
	require.Equal(t, a, FingerprintToken("header.payload.signature"))
	require.NotEqual(t, a, FingerprintToken("header.payload.signaturf"))
	require.Len(t, a, 43)
}
