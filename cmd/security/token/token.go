package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "STASH_TOKEN_HMAC_KEY"

	minHMACKeyBytes = 32
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a
// minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	if minBytes <= 0 {
		minBytes = minHMACKeyBytes
	}
	if len(raw) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return []byte(raw), nil
}

// HashRefreshTokenHex returns the server-stored digest for refresh tokens.
// It uses HMAC-SHA256 when STASH_TOKEN_HMAC_KEY is set; otherwise SHA-256.
func HashRefreshTokenHex(s string) string {
	if key, err := HMACKeyFromEnv(minHMACKeyBytes); err == nil {
		return HashHMACSHA256Hex(s, key)
	}
	return HashSHA256Hex(s)
}

// EqualHex compares two hex digests in constant time.
func EqualHex(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
