package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Redis holds the client for short-lived auth state: revoked sessions and
// signup wizard records.
type Redis struct {
	client *redis.Client
}

// NewRedis connects and pings once. Sessions cannot work without Redis, so
// an unreachable server is an error.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Redis{client: client}, nil
}

// Sessions returns the session revocation list.
func (r *Redis) Sessions() repository.SessionRepository {
	return repository.NewSessionRepository(r.client)
}

// SignupSessions returns the signup wizard records.
func (r *Redis) SignupSessions() repository.SignupSessionRepository {
	return repository.NewSignupSessionRepository(r.client)
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.client != nil {
		_ = r.client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not configured")
	}
	return r.client.Ping(ctx).Err()
}
