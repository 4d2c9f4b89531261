package identity

import (
	"net/url"
	"regexp"
	"strings"
)

// emailRe is deliberately permissive: the store's uniqueness constraint and
// the delivery path are the real arbiters of address validity.
var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// NormalizeEmail performs case-insensitive canonicalization.
// The normalized form is the uniqueness key; the original (trimmed) form is
// kept for display.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidEmail reports whether s looks like an email address after trimming.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// AvatarURL derives the default avatar for a user deterministically from the
// normalized email, so the same address always renders the same identicon.
func AvatarURL(email string) string {
	return "https://api.dicebear.com/9.x/identicon/svg?seed=" + url.QueryEscape(NormalizeEmail(email))
}
