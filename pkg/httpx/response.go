package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// MaxBodyBytes bounds request bodies read by DecodeJSON and ReadForm.
const MaxBodyBytes = 64 << 10

// ErrorBody is the OAuth2-style error document returned by every endpoint.
type ErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status. Responses are never cacheable.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	writeJSON(w, code, v)
}

// WriteJSONCached writes v as publicly cacheable for maxAge. Only for
// responses that carry no credentials.
func WriteJSONCached(w http.ResponseWriter, code int, maxAge time.Duration, v any) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge/time.Second)))
	writeJSON(w, code, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorBody.
func WriteError(w http.ResponseWriter, code int, errCode, desc string) {
	WriteJSON(w, code, ErrorBody{Error: errCode, Description: desc})
}

// NoCache sets Cache-Control and Pragma so tokens never land in a cache.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// Bind fills a flat struct of string fields from either a JSON body or a
// form body, depending on Content-Type. Fields are matched on their json tag.
func Bind(r *http.Request, dst any) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		return DecodeJSON(r, dst)
	case "application/x-www-form-urlencoded", "":
		r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("parse form: %w", err)
		}
		// Round-trip through JSON so forms and bodies share one set of tags.
		flat := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			flat[k] = r.PostForm.Get(k)
		}
		raw, _ := json.Marshal(flat)
		return json.Unmarshal(raw, dst)
	default:
		return fmt.Errorf("unsupported content type %q", ct)
	}
}

// DecodeJSON decodes a single JSON document, rejecting unknown fields and
// trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode json: trailing data")
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
