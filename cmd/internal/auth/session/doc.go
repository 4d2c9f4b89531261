// Package session implements the credential session lifecycle for stash.
//
// It owns the two signed token kinds (short-lived access, long-lived
// refresh), refresh-token rotation against the stored per-user digest, and
// the high-level operations the HTTP layer calls: register, login, logout,
// refresh, change-password, and profile updates.
//
// Trust model:
//   - Access tokens are stateless; a signature + expiry check is sufficient.
//   - Refresh tokens are additionally checked against the single stored
//     digest on the user record, so a rotated-out or logged-out token is
//     rejected even while cryptographically valid.
package session
