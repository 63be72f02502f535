package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memstore"
	"github.com/spec-kit/helpdesk/internal/service"
)

// runtime holds the process-wide dependencies shared by every command.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	pg       *persistence.Postgres
	redis    *persistence.Redis
	store    repository.Store
	sessions repository.SessionRepository
	signups  repository.SignupSessionRepository
}

// openRuntime loads configuration and connects storage. Without a
// POSTGRES_DSN everything, sessions included, lives in process memory.
func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger}
	rt.pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if !rt.pg.Enabled() {
		rt.store = memstore.New()
		rt.sessions = memstore.NewSessions()
		rt.signups = memstore.NewSignupSessions()
		return rt, nil
	}

	rt.redis, err = persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		rt.pg.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("redis: %w", err)
	}
	rt.store = rt.pg.Store()
	rt.sessions = rt.redis.Sessions()
	rt.signups = rt.redis.SignupSessions()
	return rt, nil
}

// migrate applies pending migrations when a database is configured.
func (rt *runtime) migrate(ctx context.Context) error {
	return persistence.RunMigrations(ctx, rt.pg.PoolHandle(), rt.logger)
}

func (rt *runtime) accounts() *service.AccountService {
	return service.NewAccountService(service.AccountDependencies{
		UserRepo:   rt.store.Users(),
		BcryptCost: rt.cfg.Auth.BcryptCost,
		Logger:     rt.logger,
	})
}

func (rt *runtime) references() *service.ReferenceService {
	return service.NewReferenceService(rt.store.References(), rt.logger)
}

func (rt *runtime) Close() {
	rt.redis.Close()
	rt.pg.Close()
	_ = rt.logger.Sync()
}
