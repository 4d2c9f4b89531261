package password

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Config holds bcrypt hashing parameters.
//
// Cost is deliberately the only knob: salt generation and comparison
// semantics are owned by bcrypt itself.
type Config struct {
	Cost int
}

// DefaultConfig returns the canonical cost used across the service.
func DefaultConfig() Config {
	return Config{Cost: 10}
}

// FromEnv loads Config from environment variables, falling back to defaults.
//
// Optional:
//   - STASH_PASSWORD_BCRYPT_COST (integer within bcrypt's supported range)
//
// Out-of-range or malformed values fall back to the default rather than
// weakening or inflating the work factor silently.
func FromEnv() Config {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("STASH_PASSWORD_BCRYPT_COST")); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n >= bcrypt.MinCost && n <= bcrypt.MaxCost {
			cfg.Cost = n
		}
	}

	return cfg
}
