package identity

import (
	"stash/cmd/security/password"
)

// Password hashing:
//
// identity delegates to cmd/security/password as the single source of truth
// for the bcrypt work factor. The stored hash is never returned by any API
// projection (see Profile).

// HashPassword returns a bcrypt hash of the plaintext password.
func HashPassword(plaintext string) (string, error) {
	return password.FromEnv().Hash(plaintext)
}

// VerifyPassword checks a plaintext password against a stored bcrypt hash.
// A mismatch returns (false, nil); only malformed hashes or internal
// failures surface as errors.
func VerifyPassword(plaintext, encodedHash string) (bool, error) {
	return password.FromEnv().Verify(encodedHash, plaintext)
}
