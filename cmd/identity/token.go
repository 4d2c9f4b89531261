package identity

import (
	"stash/cmd/security/token"
)

// Refresh-token storage hardening:
//
// identity delegates refresh-token hashing to cmd/security/token as the
// single source of truth. The user record stores only the 64-char hex
// digest of the one live refresh token; the token itself travels to the
// client exactly once.

// HashRefreshTokenHex returns the server-stored digest for refresh tokens.
// It uses HMAC-SHA256 when STASH_TOKEN_HMAC_KEY is set; otherwise SHA-256.
func HashRefreshTokenHex(tokenStr string) string { return token.HashRefreshTokenHex(tokenStr) }

// RefreshTokenHashEqual compares a stored digest against the digest of a
// presented token in constant time.
func RefreshTokenHashEqual(storedHex, presentedToken string) bool {
	return token.EqualHex(storedHex, HashRefreshTokenHex(presentedToken))
}
