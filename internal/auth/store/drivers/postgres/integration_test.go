//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/portalauth/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "portal",
				"POSTGRES_PASSWORD": "portal",
				"POSTGRES_DB":       "auth",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://portal:portal@%s:%s/auth?sslmode=disable", host, port.Port())
}

func TestConformance(t *testing.T) {
	ctx := context.Background()
	s, err := postgres.NewStore(ctx, startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations(ctx))
	require.NoError(t, s.ApplyMigrations(ctx))

	storetest.Run(t, s)
}
