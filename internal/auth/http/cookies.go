package http

import (
	"net/http"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/pkg/authsdk"
	"github.com/aussiebroadwan/portalauth/pkg/httpx"
)

func cookieSpec(t domain.TransportOptions) httpx.CookieSpec {
	return httpx.CookieSpec{
		Name:     t.Name,
		Path:     t.Path,
		Domain:   t.Domain,
		MaxAge:   t.MaxAge,
		HTTPOnly: t.HTTPOnly,
		Secure:   t.Secure,
		SameSite: httpx.ParseSameSite(t.SameSite),
	}
}

func setPairCookies(w http.ResponseWriter, pair domain.TokenPair) {
	httpx.SetCookie(w, cookieSpec(pair.AccessTransport), pair.Access.Token)
	httpx.SetCookie(w, cookieSpec(pair.RefreshTransport), pair.Refresh.Token)
}

func clearPairCookies(w http.ResponseWriter, pairs *service.TokenPairService) {
	httpx.ClearCookie(w, cookieSpec(pairs.TransportFor(domain.TokenAccess)))
	httpx.ClearCookie(w, cookieSpec(pairs.TransportFor(domain.TokenRefresh)))
}

func pairResponse(pair domain.TokenPair) authsdk.TokenPairResponse {
	return authsdk.TokenPairResponse{
		AccessToken:      pair.Access.Token,
		RefreshToken:     pair.Refresh.Token,
		TokenType:        "Bearer",
		ExpiresIn:        int64(pair.Access.TTL().Seconds()),
		RefreshExpiresIn: int64(pair.Refresh.TTL().Seconds()),
		SessionID:        pair.SessionID,
	}
}
