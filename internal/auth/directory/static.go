package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aussiebroadwan/portalauth/internal/auth/domain"
	"github.com/aussiebroadwan/portalauth/pkg/cryptox"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
	"github.com/aussiebroadwan/portalauth/pkg/slogx"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout:
//
//	users:
//	  - subject: s1234567
//	    username: alice
//	    password_hash: $argon2id$v=19$...
//	    attributes:
//	      roles: [staff, admin]
//	      department: ICT
type File struct {
	Users []User `yaml:"users"`
}

type User struct {
	Subject      string                   `yaml:"subject"`
	Username     string                   `yaml:"username"`
	PasswordHash string                   `yaml:"password_hash"`
	Attributes   map[string]yamlAttribute `yaml:"attributes"`
}

// yamlAttribute accepts a scalar or a sequence of scalars.
type yamlAttribute struct {
	domain.Attribute
}

func (a *yamlAttribute) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		a.Attribute = jwtx.String(value.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		a.Attribute = jwtx.Strings(list...)
		return nil
	}
	return fmt.Errorf("line %d: attribute must be a string or a list of strings", value.Line)
}

// Static is an in-memory directory loaded once at startup.
type Static struct {
	hasher cryptox.PasswordHasher
	users  map[string]User // by lower-cased username

	// dummy is verified for unknown users so both failure paths cost one
	// Argon2 evaluation.
	dummy string
}

var _ Directory = (*Static)(nil)

// LoadStatic reads and validates a directory file.
func LoadStatic(path string, hasher cryptox.PasswordHasher) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("directory: parse %s: %w", path, err)
	}
	return NewStatic(f, hasher)
}

// NewStatic validates f: every user needs a subject, a username and a
// well-formed hash, and neither subjects nor usernames may repeat.
func NewStatic(f File, hasher cryptox.PasswordHasher) (*Static, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}

	s := &Static{hasher: hasher, users: make(map[string]User, len(f.Users)), dummy: dummy}
	subjects := make(map[string]struct{}, len(f.Users))

	for i, u := range f.Users {
		u.Subject = strings.TrimSpace(u.Subject)
		key := strings.ToLower(strings.TrimSpace(u.Username))

		switch {
		case u.Subject == "":
			return nil, fmt.Errorf("directory: user %d: missing subject", i)
		case key == "":
			return nil, fmt.Errorf("directory: user %d: missing username", i)
		case !strings.HasPrefix(u.PasswordHash, "$argon2id$"):
			return nil, fmt.Errorf("directory: user %q: password_hash must be argon2id", u.Username)
		}
		if _, dup := s.users[key]; dup {
			return nil, fmt.Errorf("directory: duplicate username %q", u.Username)
		}
		if _, dup := subjects[u.Subject]; dup {
			return nil, fmt.Errorf("directory: duplicate subject %q", u.Subject)
		}

		subjects[u.Subject] = struct{}{}
		s.users[key] = u
	}
	return s, nil
}

func (s *Static) Authenticate(ctx context.Context, username, password string) (domain.Principal, error) {
	const op = "authenticate"
	log := slogx.FromContext(ctx)

	u, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		_ = s.hasher.Verify(password, s.dummy)
		log.Info("login rejected", "reason", "unknown user")
		return domain.Principal{}, domain.Fail(op, domain.ErrInvalidCredentials, nil)
	}

	if err := s.hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored hash unusable", "username", u.Username, "err", err)
		} else {
			log.Info("login rejected", "reason", "bad password", "username", u.Username)
		}
		return domain.Principal{}, domain.Fail(op, domain.ErrInvalidCredentials, err)
	}

	attrs := make(map[string]domain.Attribute, len(u.Attributes))
	for k, v := range u.Attributes {
		attrs[k] = v.Attribute
	}
	return domain.Principal{
		Subject:    u.Subject,
		Username:   u.Username,
		Attributes: jwtx.CloneAttributes(attrs),
	}, nil
}

// Len is the number of users loaded.
func (s *Static) Len() int { return len(s.users) }
