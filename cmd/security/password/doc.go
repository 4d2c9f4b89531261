// Package password provides password hashing and verification for stash.
//
// It wraps bcrypt with a configurable work factor and includes:
// - Cost configuration (via environment variables)
// - Constant-time comparison (internal to bcrypt)
// - Input bounds that reject empty and over-length passwords before hashing
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify.
// - A mismatch is a normal outcome, not an error: Verify returns (false, nil).
package password
