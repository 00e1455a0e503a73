package auth_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, the seeded directory, and assertions.
 */

const (
	testImageName = "portal-auth-test:latest"

	testPepper = "e2e-pepper-do-not-use-in-production"

	adminUsername = "alice"
	adminSubject  = "s0000001"
	staffUsername = "bob"
	staffSubject  = "s0000002"
	testPassword  = "correct horse battery staple"

	refreshSecret = "e2e-refresh-secret-0123456789abcdef0123"
)

var (
	// Filled once by TestMain; Argon2 hashing per container would dominate runtime.
	directoryYAML []byte
	accessKeyPEM  []byte
)

// TestMain builds the Docker image and the seeded directory once before all
// tests and removes the image after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Preparing directory and signing key...")
	if err := prepareFixtures(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to prepare fixtures: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func prepareFixtures() error {
	hash, err := cryptox.PasswordHasher{Pepper: testPepper}.Hash(testPassword)
	if err != nil {
		return err
	}
	directoryYAML = fmt.Appendf(nil, `users:
  - subject: %s
    username: %s
    password_hash: %q
    attributes:
      roles: [staff, admin]
      department: ICT
  - subject: %s
    username: %s
    password_hash: %q
    attributes:
      roles: staff
      department: Library
`, adminSubject, adminUsername, hash, staffSubject, staffUsername, hash)

	accessKeyPEM, err = cryptox.GenerateEd25519Key()
	return err
}

// buildDockerImage builds the test Docker image from the repository root.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupAuthContainer starts the auth service in a container and returns the
// base URL. Access tokens are EdDSA so the JWKS is populated; refresh tokens
// use HMAC. Revocations persist in SQLite inside the container.
func setupAuthContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"AUTH_ACCESS_ALGORITHM":  "EdDSA",
			"AUTH_ACCESS_KEY_FILE":   "/etc/portal-auth/access.pem",
			"AUTH_REFRESH_SECRET":    refreshSecret,
			"AUTH_ISSUER":            "portal-auth",
			"AUTH_AUDIENCE":          "portal",
			"AUTH_PEPPER_FILE":       "/etc/portal-auth/pepper",
			"DIRECTORY_FILE":         "/etc/portal-auth/directory.yaml",
			"REVOCATION_DRIVER":      "sqlite",
			"REVOCATION_SQLITE_FILE": "/data/revocations.db",
			"COOKIE_SECURE":          "false",
			"COOKIE_SAMESITE":        "lax",
			"ENV":                    "test",
			"LOG_LEVEL":              "info",
			"LOG_FORMAT":             "json",
		},
		Files: []testcontainers.ContainerFile{
			{
				Reader:            bytes.NewReader(directoryYAML),
				ContainerFilePath: "/etc/portal-auth/directory.yaml",
				FileMode:          0o644,
			},
			{
				Reader:            strings.NewReader(testPepper),
				ContainerFilePath: "/etc/portal-auth/pepper",
				FileMode:          0o644,
			},
			{
				Reader:            bytes.NewReader(accessKeyPEM),
				ContainerFilePath: "/etc/portal-auth/access.pem",
				FileMode:          0o644,
			},
		},
		WaitingFor: wait.ForHTTP("/readyz").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

// performLogin logs in and checks the response shape.
func performLogin(t *testing.T, client *authsdk.Client, username string) *authsdk.TokenPairResponse {
	t.Helper()

	pair, err := client.Login(t.Context(), username, testPassword)
	require.NoError(t, err, "Login should succeed")
	assertTokenPair(t, pair)
	return pair
}

// assertTokenPair verifies a token pair response has all required fields.
func assertTokenPair(t *testing.T, pair *authsdk.TokenPairResponse) {
	t.Helper()
	require.NotNil(t, pair)
	require.NotEmpty(t, pair.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, pair.RefreshToken, "Refresh token should not be empty")
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType, "Token type should be Bearer")
	require.EqualValues(t, 900, pair.ExpiresIn)
	require.EqualValues(t, 604800, pair.RefreshExpiresIn)
	require.NotEmpty(t, pair.SessionID, "Session id should not be empty")
}

// assertOAuthError checks that err carries the expected status and code.
func assertOAuthError(t *testing.T, err error, status int, code, context string) {
	t.Helper()
	require.Error(t, err, context)

	var oerr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oerr, "%s - expected an OAuth2 error, got: %v", context, err)
	require.Equal(t, status, oerr.StatusCode, context)
	require.Equal(t, code, oerr.Code, context)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
