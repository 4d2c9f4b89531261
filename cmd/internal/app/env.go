package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env helpers back LoadConfig. A set but malformed value falls back to
// the default instead of aborting; required keys are enforced by
// LoadConfig itself.

func envRaw(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// EnvString reads a string env var with a default.
func EnvString(key, def string) string {
	if v, ok := envRaw(key); ok {
		return v
	}
	return def
}

// EnvBool reads a bool env var with a default.
func EnvBool(key string, def bool) bool {
	v, ok := envRaw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvInt reads a positive int env var; zero and negatives count as unset.
func EnvInt(key string, def int) int {
	v, ok := envRaw(key)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return def
}

// EnvInt32 reads a non-negative int32 env var, used for pool sizing
// where zero means "let pgx decide".
func EnvInt32(key string, def int32) int32 {
	v, ok := envRaw(key)
	if !ok {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 32); err == nil && n >= 0 {
		return int32(n)
	}
	return def
}

// EnvDuration reads a Go duration string such as "15m" or "168h".
func EnvDuration(key string, def time.Duration) time.Duration {
	v, ok := envRaw(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}
