// Package app wires the stash server runtime: config, logging, database,
// migrations, metrics and the auth HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stash/cmd/identity"
	authapi "stash/cmd/internal/auth/api"
	"stash/cmd/internal/auth/session"
)

// App owns the HTTP server wiring and the database pool lifecycle.
type App struct {
	cfg Config
	log Logger

	pool    *pgxpool.Pool
	auth    *authapi.Handler
	metrics *Metrics
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MigrateOnStart {
		if err := RunMigrations(ctx, cfg, log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	store, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}
	tokens, err := session.NewJWTManager(sessCfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	sessions := session.NewService(sessCfg, log, store, tokens)

	metrics := NewMetrics()
	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), sessions,
		authapi.WithLoginFailureCounter(metrics.LoginFailures()))
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		pool:    pool,
		auth:    auth,
		metrics: metrics,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.pool, a.auth, a.metrics)

	var handler http.Handler = mux
	handler = a.metrics.WithMetrics(handler)
	handler = WithCORS(handler, a.cfg.CORSOrigin)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.pool.Close()

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
