package authsdk

import (
	"context"
	"net/http"
)

// Liveness checks if the service is alive.
func (c *Client) Liveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// Readiness checks the revocation store and signing keys. A degraded service
// answers 503, which comes back as an *OAuth2Error.
func (c *Client) Readiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
