// Package directory authenticates users and describes them as principals.
// LDAP lives behind the same interface in the wider portal; this service
// ships a static file-backed implementation.
package directory

import (
	"context"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
)

// Directory checks credentials and returns the matching principal. A wrong
// username or password is domain.ErrInvalidCredentials.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (domain.Principal, error)
}
