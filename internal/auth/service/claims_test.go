package service

import (
	"testing"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestClaimsBuilder(t *testing.T) {
	t.Parallel()
	var b ClaimsBuilder

	t.Run("builds typed core", func(t *testing.T) {
		c, err := b.Build(domain.Principal{Subject: "alice", Username: "alice"}, domain.TokenAccess)
		require.NoError(t, err)
		require.Equal(t, "alice", c.Subject)
		require.Equal(t, domain.TokenAccess, c.Type)
		require.Empty(t, c.JTI)
		require.True(t, c.ExpiresAt.IsZero())
	})

	t.Run("rejects blank subject", func(t *testing.T) {
		for _, sub := range []string{"", "   ", "\t\n"} {
			_, err := b.Build(domain.Principal{Subject: sub}, domain.TokenAccess)
			requireKind(t, err, domain.ErrInvalidPrincipal)
		}
	})

	t.Run("rejects surrounding whitespace", func(t *testing.T) {
		for _, sub := range []string{" alice", "alice ", "\talice\n"} {
			_, err := b.Build(domain.Principal{Subject: sub}, domain.TokenAccess)
			requireKind(t, err, domain.ErrInvalidPrincipal)
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := b.Build(alice(), domain.TokenType("id"))
		requireKind(t, err, domain.ErrInvalidPrincipal)
	})

	t.Run("does not alias principal attributes", func(t *testing.T) {
		p := alice()
		c, err := b.Build(p, domain.TokenRefresh)
		require.NoError(t, err)

		p.Attributes["roles"] = jwtx.String("nobody")
		delete(p.Attributes, "department")

		require.True(t, c.HasAttr("roles", "admin"))
		require.True(t, c.HasAttr("department", "ICT"))
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := b.Build(alice(), domain.TokenAccess)
		require.NoError(t, err)
		c, err := b.Build(alice(), domain.TokenAccess)
		require.NoError(t, err)
		require.Equal(t, a, c)
	})
}
