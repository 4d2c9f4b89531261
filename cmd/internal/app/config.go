package app

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBSchema    string

	// CORSOrigin is the single allowed browser origin. Responses carry
	// Access-Control-Allow-Credentials, so a wildcard is not accepted.
	CORSOrigin string

	MigrateOnStart bool
}

// requiredAppEnv lists the env keys without which the process must not
// start. The session config adds its own four required keys on top.
var requiredAppEnv = []string{
	"STASH_HTTP_ADDR",
	"STASH_DATABASE_URL",
	"STASH_CORS_ORIGIN",
}

// LoadConfig loads Config from environment variables. Missing required keys
// fail startup with a single error naming all of them.
func LoadConfig() (Config, error) {
	var missing []string
	for _, key := range requiredAppEnv {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("app: missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := Config{
		HTTPAddr: EnvString("STASH_HTTP_ADDR", ""),
		LogLevel: EnvString("STASH_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("STASH_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("STASH_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("STASH_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("STASH_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("STASH_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("STASH_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("STASH_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("STASH_DB_MIN_CONNS", 0),
		DBSchema:    EnvString("STASH_DB_SCHEMA", "stash"),

		CORSOrigin: EnvString("STASH_CORS_ORIGIN", ""),

		MigrateOnStart: EnvBool("STASH_DB_MIGRATE_ON_START", true),
	}

	if cfg.CORSOrigin == "*" {
		return Config{}, fmt.Errorf("app: STASH_CORS_ORIGIN must be a concrete origin, not a wildcard")
	}

	return cfg, nil
}
