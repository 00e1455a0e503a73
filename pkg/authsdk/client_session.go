package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me returns the claims of accessToken as the server sees them.
func (c *Client) Me(ctx context.Context, accessToken string) (*MeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auth/me", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}

	var me MeResponse
	if err := decodeJSON(resp, &me, http.StatusOK); err != nil {
		return nil, err
	}
	return &me, nil
}

// Introspect reports whether token is active. accessToken authenticates the
// caller and may be the same token.
func (c *Client) Introspect(ctx context.Context, accessToken, token string) (*IntrospectionResponse, error) {
	resp, err := c.postForm(ctx, "/v1/auth/introspect", url.Values{"token": {token}}, accessToken)
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke revokes any token on behalf of an administrator. adminToken must
// carry the admin role.
func (c *Client) Revoke(ctx context.Context, adminToken, token string) error {
	resp, err := c.postForm(ctx, "/v1/auth/revoke", url.Values{"token": {token}}, adminToken)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
