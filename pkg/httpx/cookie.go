package httpx

import (
	"net/http"
	"strings"
	"time"
)

// CookieSpec describes how a credential should be carried by a browser.
type CookieSpec struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   time.Duration
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// SetCookie writes value under spec.
func SetCookie(w http.ResponseWriter, spec CookieSpec, value string) {
	http.SetCookie(w, spec.cookie(value, int(spec.MaxAge/time.Second)))
}

// ClearCookie expires the cookie described by spec.
func ClearCookie(w http.ResponseWriter, spec CookieSpec) {
	c := spec.cookie("", -1)
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// CookieValue returns the named cookie's value, or "".
func CookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// ParseSameSite maps "strict", "lax" and "none"; anything else is strict.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

func (s CookieSpec) cookie(value string, maxAge int) *http.Cookie {
	path := s.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     s.Name,
		Value:    value,
		Path:     path,
		Domain:   s.Domain,
		MaxAge:   maxAge,
		HttpOnly: s.HTTPOnly,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	}
}
