package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to portal-auth. It holds no credentials; callers pass tokens
// to each method and persist them however they like.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}
