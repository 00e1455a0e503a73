package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/portalauth/pkg/httpx"
)

// Error codes. The first group is RFC 6749/6750; the rest are ours.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidGrant      = "invalid_grant"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInsufficientScope = "insufficient_scope"
	ErrorCodeServerError       = "server_error"

	ErrorCodeUnavailable = "temporarily_unavailable"
	ErrorCodeRateLimited = "rate_limit_exceeded"
)

// OAuth2Error is the error document every endpoint returns. The server writes
// it and the client decodes it, so both sides share one type.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code so callers can write errors.Is(err, authsdk.ErrInvalidGrant).
func (e *OAuth2Error) Is(target error) bool {
	t, ok := target.(*OAuth2Error)
	return ok && t.Code == e.Code
}

// WriteError writes e as the response.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	if e.Code == ErrorCodeInvalidToken {
		httpx.WriteBearerError(w, e.Description)
		return
	}
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

var (
	ErrInvalidRequest = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidGrant covers a bad username/password pair and a refresh
	// token that cannot be exchanged. The reason is never disclosed.
	ErrInvalidGrant = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "invalid credentials",
	}

	ErrInvalidToken = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "please re-authenticate",
	}

	ErrInsufficientScope = &OAuth2Error{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientScope,
		Description: "the access token does not carry the required role",
	}

	ErrServerError = &OAuth2Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	// ErrUnavailable is returned when the revocation list cannot be reached.
	// Clients may retry; the credential itself may still be fine.
	ErrUnavailable = &OAuth2Error{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeUnavailable,
		Description: "token state is temporarily unavailable",
	}
)

// parseErrorResponse turns a non-2xx response into an *OAuth2Error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	code := ErrorCodeServerError
	if resp.StatusCode == http.StatusTooManyRequests {
		code = ErrorCodeRateLimited
	}
	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        code,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
