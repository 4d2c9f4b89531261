// Package identity implements stash's identity foundation.
//
// It owns the canonical user record, its sanitized projection, email
// normalization/validation, avatar derivation, and the persistence boundary
// (Store) the session layer talks to.
//
// This package is intentionally dependency-light and security-first.
package identity
