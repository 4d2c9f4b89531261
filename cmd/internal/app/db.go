package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// startupPingTimeout bounds the connectivity check done while building
// the pool. The readiness endpoint passes its own, shorter timeout.
const startupPingTimeout = 3 * time.Second

// NewDBPool opens a pgx connection pool against cfg.DatabaseURL and
// verifies a round trip before handing it out. Schema changes are a
// separate startup step, see RunMigrations.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if err := PingDB(ctx, pool, startupPingTimeout); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// PingDB exercises one pooled connection within timeout. It backs both
// the startup check and the /readyz endpoint.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return pool.Ping(ctx)
}
