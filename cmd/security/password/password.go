package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt silently truncates inputs beyond 72 bytes; reject instead.
const maxPasswordBytes = 72

// Hash hashes a password using bcrypt with the configured cost.
// bcrypt embeds a per-hash random salt in the output string.
func (c Config) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordEmpty
	}
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	cost := c.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultConfig().Cost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify checks whether password matches the given encoded hash.
// Returns (true, nil) for a match, (false, nil) for a mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	if password == "" || len(password) > maxPasswordBytes {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}
