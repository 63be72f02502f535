package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionRepository tracks login sessions revoked before their expiry.
type SessionRepository interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "helpdesk:session:revoked:"

type redisSessionRepository struct {
	client *redis.Client
}

// NewSessionRepository returns a Redis-backed implementation.
func NewSessionRepository(client *redis.Client) SessionRepository {
	return &redisSessionRepository{client: client}
}

func (r *redisSessionRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

func (r *redisSessionRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
