package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreatePepper reads the pepper stored at path. When the file does not
// exist a new 256-bit pepper is generated and written with 0600 permissions.
func LoadOrCreatePepper(path string) (string, error) {
	path = filepath.Clean(path)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		pepper := strings.TrimSpace(string(raw))
		if pepper == "" {
			return "", fmt.Errorf("cryptox: pepper file %s is empty", path)
		}
		return pepper, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("cryptox: read pepper: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: create pepper dir: %w", err)
	}

	buf := make([]byte, TokenSize256)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate pepper: %w", err)
	}
	pepper := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.WriteFile(path, []byte(pepper), 0o600); err != nil {
		return "", fmt.Errorf("cryptox: write pepper: %w", err)
	}
	return pepper, nil
}
