package session

import (
	"crypto/subtle"
	"os"
	"strings"
	"time"
)

// Config defines all runtime configuration for the session subsystem.
//
// It controls token lifetimes, clock skew tolerance, and the two signing
// secrets. The secrets are per token kind and MUST differ: an access token
// must never verify under the refresh secret or vice versa.
type Config struct {
	// Issuer is the value set in the "iss" claim of both token kinds.
	Issuer string

	// AccessTokenTTL defines the lifetime of access tokens.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL defines the lifetime of refresh tokens.
	RefreshTokenTTL time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// AccessTokenSecret signs and verifies access tokens (HS256).
	AccessTokenSecret string

	// RefreshTokenSecret signs and verifies refresh tokens (HS256).
	RefreshTokenSecret string
}

const minSecretBytes = 32

// DefaultConfig returns defaults for the non-secret knobs.
// Secrets and TTLs have no defaults; they are part of the required
// configuration surface and absence aborts startup.
func DefaultConfig() Config {
	return Config{
		Issuer:    "stash",
		ClockSkew: 30 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required (startup fails when absent or invalid):
//   - STASH_AUTH_ACCESS_TOKEN_SECRET  (>= 32 bytes)
//   - STASH_AUTH_ACCESS_TOKEN_TTL     (Go duration, > 0)
//   - STASH_AUTH_REFRESH_TOKEN_SECRET (>= 32 bytes, distinct from access)
//   - STASH_AUTH_REFRESH_TOKEN_TTL    (Go duration, > 0)
//
// Optional:
//   - STASH_AUTH_ISSUER
//   - STASH_AUTH_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("STASH_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("STASH_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	v := os.Getenv("STASH_AUTH_ACCESS_TOKEN_TTL")
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return Config{}, ErrConfig
	}
	cfg.AccessTokenTTL = d

	v = os.Getenv("STASH_AUTH_REFRESH_TOKEN_TTL")
	d, err = time.ParseDuration(v)
	if err != nil || d <= 0 {
		return Config{}, ErrConfig
	}
	cfg.RefreshTokenTTL = d

	cfg.AccessTokenSecret = strings.TrimSpace(os.Getenv("STASH_AUTH_ACCESS_TOKEN_SECRET"))
	cfg.RefreshTokenSecret = strings.TrimSpace(os.Getenv("STASH_AUTH_REFRESH_TOKEN_SECRET"))

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(c.AccessTokenSecret) < minSecretBytes || len(c.RefreshTokenSecret) < minSecretBytes {
		return ErrConfig
	}
	// The two kinds must not be interchangeable.
	if subtle.ConstantTimeCompare([]byte(c.AccessTokenSecret), []byte(c.RefreshTokenSecret)) == 1 {
		return ErrConfig
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return ErrConfig
	}
	// An access token outliving the refresh token inverts the trust model.
	if c.AccessTokenTTL > c.RefreshTokenTTL {
		return ErrConfig
	}
	return nil
}
