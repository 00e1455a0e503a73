package domain

import "errors"

// Error kinds surfaced by the token core. Callers match them with errors.Is.
var (
	ErrInvalidPrincipal   = errors.New("invalid_principal")
	ErrGenerationFailed   = errors.New("generation_failed")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenExpired       = errors.New("token_expired")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrVerificationFailed = errors.New("verification_failed")
	ErrInvalidFormat      = errors.New("invalid_format")
	ErrRevocationFailed   = errors.New("revocation_failed")

	ErrInvalidCredentials = errors.New("invalid_credentials")
)

var kinds = []error{
	ErrInvalidPrincipal,
	ErrGenerationFailed,
	ErrInvalidToken,
	ErrTokenExpired,
	ErrTokenRevoked,
	ErrVerificationFailed,
	ErrInvalidFormat,
	ErrRevocationFailed,
	ErrInvalidCredentials,
}

// Error carries a kind to callers and a cause to logs. Error() never
// includes the cause, so library messages cannot leak over the wire.
type Error struct {
	Kind  error
	Op    string
	cause error
}

// Fail builds an *Error. cause may be nil.
func Fail(op string, kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, cause: cause}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// Cause is the underlying failure, for server-side logging only.
func (e *Error) Cause() error { return e.cause }

// KindOf returns the kind err carries. Unknown errors count as
// ErrVerificationFailed; nil stays nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrVerificationFailed
}

// Cause digs the logged cause out of err, or returns err itself.
func Cause(err error) error {
	var e *Error
	if errors.As(err, &e) && e.cause != nil {
		return e.cause
	}
	return err
}
