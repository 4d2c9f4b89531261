package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when a token fails signature, expiry, or
	// claim validation. The cause is deliberately not distinguished.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidCredentials is returned for a wrong email/password pair.
	// Unknown email and wrong password produce this same value so the API
	// cannot be used as an account oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when a required credential is missing or
	// cannot be trusted (absent, malformed, expired, superseded).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is the kind behind ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// ValidationError reports malformed or missing caller input with a message
// safe to surface verbatim in the response envelope.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	if e.Msg == "" {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Msg)
}

func (e ValidationError) Unwrap() error { return ErrValidation }

// IsValidation reports whether err represents ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
