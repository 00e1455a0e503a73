package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/portalauth/pkg/cryptox"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "portal-auth-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newClaims(typ string, now time.Time, ttl time.Duration) jwtx.Claims {
	return jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "alice",
			Audience:  jwt.ClaimStrings{"portal"},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        cryptox.MustGenerateToken(cryptox.TokenSize128),
		},
		Type:     typ,
		Username: "alice",
		Attrs: map[string]jwtx.Attribute{
			"roles": jwtx.Strings("staff"),
		},
	}
}

func signerFor(t *testing.T, alg string) jwtx.Signer {
	t.Helper()

	var (
		material []byte
		err      error
	)
	switch alg {
	case jwtx.AlgorithmHS256:
		material = testSecret
	case jwtx.AlgorithmHS384:
		material = []byte(strings.Repeat("k", 48))
	case jwtx.AlgorithmHS512:
		material = []byte(strings.Repeat("k", 64))
	case jwtx.AlgorithmEdDSA:
		material, err = cryptox.GenerateEd25519Key()
	case jwtx.AlgorithmES256:
		material, err = cryptox.GenerateES256Key()
	case jwtx.AlgorithmRS256:
		material, err = cryptox.GenerateRSAKey(2048)
	}
	require.NoError(t, err)

	s, err := jwtx.NewSigner(alg, "", material)
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	require.Equal(t, alg, s.Alg())
	require.NotEmpty(t, s.KID())
	return s
}

func verifierFor(t *testing.T, s jwtx.Signer, opts jwtx.VerifyOptions) *jwtx.Verifier {
	t.Helper()
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(s))
	return jwtx.NewVerifier(s.Alg(), keys, opts)
}

func TestSignAndVerify_AllAlgorithms(t *testing.T) {
	algs := []string{
		jwtx.AlgorithmHS256, jwtx.AlgorithmHS384, jwtx.AlgorithmHS512,
		jwtx.AlgorithmEdDSA, jwtx.AlgorithmES256, jwtx.AlgorithmRS256,
	}

	for _, alg := range algs {
		t.Run(alg, func(t *testing.T) {
			s := signerFor(t, alg)
			now := time.Now().UTC().Truncate(time.Second)
			claims := newClaims(jwtx.TypeAccess, now, 5*time.Minute)

			token, err := s.Sign(claims)
			require.NoError(t, err)
			require.Len(t, strings.Split(token, "."), 3)

			v := verifierFor(t, s, jwtx.VerifyOptions{
				Type:     jwtx.TypeAccess,
				Issuer:   testIssuer,
				Audience: []string{"portal"},
			})

			got, err := v.Verify(token)
			require.NoError(t, err)
			require.Equal(t, claims.Subject, got.Subject)
			require.Equal(t, claims.ID, got.ID)
			require.Equal(t, claims.Issuer, got.Issuer)
			require.ElementsMatch(t, claims.Audience, got.Audience)
			require.Equal(t, claims.ExpiresAt.Unix(), got.ExpiresAt.Unix())
			require.Equal(t, jwtx.TypeAccess, got.Type)
			require.True(t, got.Attrs["roles"].Equal(jwtx.Strings("staff")))
		})
	}
}

func TestVerify_Failures(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := signerFor(t, jwtx.AlgorithmHS256)

	sign := func(c jwtx.Claims) string {
		token, err := s.Sign(c)
		require.NoError(t, err)
		return token
	}
	base := jwtx.VerifyOptions{Type: jwtx.TypeAccess, Issuer: testIssuer, Audience: []string{"portal"}, Now: clock}

	t.Run("expired", func(t *testing.T) {
		token := sign(newClaims(jwtx.TypeAccess, now.Add(-16*time.Minute), 15*time.Minute))
		_, err := verifierFor(t, s, base).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("expired but parseable", func(t *testing.T) {
		token := sign(newClaims(jwtx.TypeAccess, now.Add(-16*time.Minute), 15*time.Minute))
		c, err := verifierFor(t, s, base).Parse(token)
		require.NoError(t, err)
		require.Equal(t, "alice", c.Subject)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		opts := base
		opts.Issuer = "someone-else"
		_, err := verifierFor(t, s, opts).Verify(sign(newClaims(jwtx.TypeAccess, now, time.Minute)))
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong audience", func(t *testing.T) {
		opts := base
		opts.Audience = []string{"dashboard"}
		_, err := verifierFor(t, s, opts).Verify(sign(newClaims(jwtx.TypeAccess, now, time.Minute)))
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("expiry reported before issuer", func(t *testing.T) {
		opts := base
		opts.Issuer = "someone-else"
		token := sign(newClaims(jwtx.TypeAccess, now.Add(-time.Hour), time.Minute))
		_, err := verifierFor(t, s, opts).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong type", func(t *testing.T) {
		token := sign(newClaims(jwtx.TypeRefresh, now, time.Minute))
		_, err := verifierFor(t, s, base).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrTokenType)
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := jwtx.NewSigner(jwtx.AlgorithmHS256, s.KID(), []byte(strings.Repeat("z", 32)))
		require.NoError(t, err)
		token, err := other.Sign(newClaims(jwtx.TypeAccess, now, time.Minute))
		require.NoError(t, err)

		_, err = verifierFor(t, s, base).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("unknown kid", func(t *testing.T) {
		other := signerFor(t, jwtx.AlgorithmHS256)
		keys := jwtx.NewKeySet()
		require.NoError(t, keys.AddSigner(signerFor(t, jwtx.AlgorithmHS512)))

		token, err := other.Sign(newClaims(jwtx.TypeAccess, now, time.Minute))
		require.NoError(t, err)

		_, err = jwtx.NewVerifier(jwtx.AlgorithmHS256, keys, base).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("algorithm mismatch", func(t *testing.T) {
		ed := signerFor(t, jwtx.AlgorithmEdDSA)
		token, err := ed.Sign(newClaims(jwtx.TypeAccess, now, time.Minute))
		require.NoError(t, err)

		_, err = verifierFor(t, s, base).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("tampered payload", func(t *testing.T) {
		token := sign(newClaims(jwtx.TypeAccess, now, time.Minute))
		parts := strings.Split(token, ".")
		forged := sign(jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "mallory", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
			Type:             jwtx.TypeAccess,
		})
		parts[1] = strings.Split(forged, ".")[1]

		_, err := verifierFor(t, s, base).Verify(strings.Join(parts, "."))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("garbage", func(t *testing.T) {
		for _, junk := range []string{"", "abc", "a.b", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.%%%.sig"} {
			_, err := verifierFor(t, s, base).Verify(junk)
			require.ErrorIs(t, err, jwtx.ErrMalformed, junk)
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, newClaims(jwtx.TypeAccess, now, time.Minute))
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifierFor(t, s, base).Verify(token)
		require.Error(t, err)
	})
}

func TestPeek(t *testing.T) {
	s := signerFor(t, jwtx.AlgorithmHS256)
	token, err := s.Sign(newClaims(jwtx.TypeRefresh, time.Now(), time.Minute))
	require.NoError(t, err)

	c, err := jwtx.Peek(token)
	require.NoError(t, err)
	require.Equal(t, jwtx.TypeRefresh, c.Type)
	require.NotEmpty(t, c.ID)

	_, err = jwtx.Peek("not-a-token")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestNewSigner_Rejects(t *testing.T) {
	ed, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	tests := []struct {
		name     string
		alg      string
		material []byte
	}{
		{"empty material", jwtx.AlgorithmHS256, nil},
		{"short HS256 secret", jwtx.AlgorithmHS256, []byte("short")},
		{"short HS512 secret", jwtx.AlgorithmHS512, testSecret},
		{"unknown algorithm", "PS512", testSecret},
		{"not PEM", jwtx.AlgorithmEdDSA, []byte("not a pem block")},
		{"wrong key shape", jwtx.AlgorithmES256, ed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jwtx.NewSigner(tt.alg, "", tt.material)
			require.Error(t, err)
		})
	}
}

func TestKeySet(t *testing.T) {
	hs := signerFor(t, jwtx.AlgorithmHS256)
	ed := signerFor(t, jwtx.AlgorithmEdDSA)
	es := signerFor(t, jwtx.AlgorithmES256)

	keys := jwtx.NewKeySet()
	require.False(t, keys.IsReady())
	require.NoError(t, keys.AddSigner(hs))
	require.NoError(t, keys.AddSigner(ed))
	require.NoError(t, keys.AddSigner(es))
	require.True(t, keys.IsReady())

	t.Run("duplicate kid", func(t *testing.T) {
		require.Error(t, keys.AddSigner(hs))
	})

	t.Run("jwks only publishes asymmetric keys", func(t *testing.T) {
		jwks := keys.PublicJWKS()
		require.Len(t, jwks.Keys, 2)
		for _, k := range jwks.Keys {
			require.NotEqual(t, hs.KID(), k.Kid)
			require.Equal(t, "sig", k.Use)
		}
	})

	t.Run("overlap detection", func(t *testing.T) {
		same, err := jwtx.NewSigner(jwtx.AlgorithmHS256, "other-kid", testSecret)
		require.NoError(t, err)

		other := jwtx.NewKeySet()
		require.NoError(t, other.AddSigner(same))
		require.True(t, keys.Overlaps(other))

		distinct := jwtx.NewKeySet()
		require.NoError(t, distinct.AddSigner(signerFor(t, jwtx.AlgorithmHS384)))
		require.False(t, keys.Overlaps(distinct))
	})

	t.Run("get", func(t *testing.T) {
		_, err := keys.Get(ed.KID())
		require.NoError(t, err)
		_, err = keys.Get("missing")
		require.ErrorIs(t, err, jwtx.ErrNoKey)
	})
}

func TestDeriveKID(t *testing.T) {
	a := jwtx.DeriveKID("access", testSecret)
	require.True(t, strings.HasPrefix(a, "access-"))
	require.Equal(t, a, jwtx.DeriveKID("access", testSecret))
	require.NotEqual(t, a, jwtx.DeriveKID("refresh", testSecret))
}
