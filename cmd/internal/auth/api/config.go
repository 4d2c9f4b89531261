package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config controls auth API transport behavior.
type Config struct {
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	MaxBodyBytes int64
}

// DefaultConfig returns the production cookie defaults.
func DefaultConfig() Config {
	return Config{
		CookiePath:     "/",
		CookieSecure:   true,
		CookieSameSite: http.SameSiteLaxMode,
		MaxBodyBytes:   16 << 10, // 16 KiB
	}
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults. CookieSecure may be disabled for local development only.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.CookiePath = envString("STASH_AUTH_COOKIE_PATH", cfg.CookiePath)
	cfg.CookieDomain = envString("STASH_AUTH_COOKIE_DOMAIN", cfg.CookieDomain)
	cfg.CookieSecure = envBool("STASH_AUTH_COOKIE_SECURE", cfg.CookieSecure)
	cfg.CookieSameSite = envSameSite("STASH_AUTH_COOKIE_SAMESITE", cfg.CookieSameSite)
	cfg.MaxBodyBytes = envInt64("STASH_AUTH_MAX_BODY_BYTES", cfg.MaxBodyBytes)

	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 16 << 10
	}
	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envSameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}
