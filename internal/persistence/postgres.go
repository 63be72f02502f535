package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Postgres owns the pgx pool behind the ticket and account store. A zero
// Postgres, built without a DSN, has no pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects when cfg carries a DSN, retrying the first ping
// with linear backoff while the database comes up.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using the in-memory store")
		return &Postgres{}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	attempts := max(cfg.ConnectAttempts, 1)
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == attempts {
			pool.Close()
			return nil, fmt.Errorf("ping after %d attempts: %w", attempts, err)
		}
		logger.Warn("postgres not ready", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-time.After(time.Duration(attempt) * time.Second):
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		}
	}

	logger.Info("connected to postgres", zap.Int32("max_conns", poolCfg.MaxConns))
	return &Postgres{pool: pool}, nil
}

// Enabled reports whether a pool is open.
func (p *Postgres) Enabled() bool {
	return p != nil && p.pool != nil
}

// Store returns the repositories backed by the pool.
func (p *Postgres) Store() repository.Store {
	return repository.NewPostgresStore(p.pool)
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p.Enabled() {
		p.pool.Close()
	}
}

// Ping verifies database connectivity for the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
	if !p.Enabled() {
		return fmt.Errorf("postgres pool not configured")
	}
	return p.pool.Ping(ctx)
}

// PoolHandle returns the underlying pgx pool, nil without a DSN.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.pool
}
