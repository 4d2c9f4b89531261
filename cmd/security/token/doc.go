// Package token provides token hashing primitives for stash.
//
// It is the single source of truth for how the stored refresh-token
// reference is derived: the service never persists a refresh token in
// plaintext, only a digest of it.
//
// Design goals:
// - Default mode: SHA-256(token) when no HMAC key is configured.
// - Hardened mode: HMAC-SHA256(token, key) when STASH_TOKEN_HMAC_KEY is set.
// - Stable 64-char hex output for storage and constant-time comparison.
package token
