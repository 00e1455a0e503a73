package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Login exchanges a username and password for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPairResponse, error) {
	resp, err := c.postForm(ctx, "/v1/auth/login", url.Values{
		"username": {username},
		"password": {password},
	}, "")
	if err != nil {
		return nil, err
	}

	var pair TokenPairResponse
	if err := decodeJSON(resp, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Refresh rotates refreshToken. The old token is unusable afterwards even
// if this call fails on the way back.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPairResponse, error) {
	resp, err := c.postForm(ctx, "/v1/auth/refresh", url.Values{
		"refresh_token": {refreshToken},
	}, "")
	if err != nil {
		return nil, err
	}

	var pair TokenPairResponse
	if err := decodeJSON(resp, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout revokes both tokens. Either may be empty.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	data := url.Values{}
	if refreshToken != "" {
		data.Set("refresh_token", refreshToken)
	}
	resp, err := c.postForm(ctx, "/v1/auth/logout", data, accessToken)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
