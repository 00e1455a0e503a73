/*
Package authsdk is a small client for the portal-auth token service.

Other portal services use it to log users in, rotate refresh tokens, log out
and ask whether a token is still active:

	client := authsdk.NewClient("https://auth.portal.example.edu")

	pair, err := client.Login(ctx, "alice", password)
	if errors.Is(err, authsdk.ErrInvalidGrant) {
		// wrong username or password
	}

	me, err := client.Me(ctx, pair.AccessToken)

	// Rotation revokes the old refresh token; always keep the new one.
	pair, err = client.Refresh(ctx, pair.RefreshToken)

	err = client.Logout(ctx, pair.AccessToken, pair.RefreshToken)

# Errors

Every non-2xx response is returned as an *OAuth2Error. The predefined values
(ErrInvalidGrant, ErrInvalidToken, ErrUnavailable, ...) match with errors.Is
on their error code.

The server never says why a token was rejected. Expired, revoked and forged
tokens all yield ErrInvalidToken; the client's only move is to log in again.

# Thread Safety

A Client holds no mutable state and may be shared.
*/
package authsdk
