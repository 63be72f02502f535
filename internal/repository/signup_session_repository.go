package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SignupSessionRepository keeps short-lived signup wizard records.
type SignupSessionRepository interface {
	Save(ctx context.Context, session *domain.SignupSession, ttl time.Duration) error
	Get(ctx context.Context, token string) (*domain.SignupSession, error)
	Delete(ctx context.Context, token string) error
}

const signupKeyPrefix = "helpdesk:signup:"

type redisSignupSessionRepository struct {
	client *redis.Client
}

// NewSignupSessionRepository returns a Redis-backed implementation.
func NewSignupSessionRepository(client *redis.Client) SignupSessionRepository {
	return &redisSignupSessionRepository{client: client}
}

func (r *redisSignupSessionRepository) Save(ctx context.Context, session *domain.SignupSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, signupKeyPrefix+session.Token, payload, ttl).Err()
}

func (r *redisSignupSessionRepository) Get(ctx context.Context, token string) (*domain.SignupSession, error) {
	payload, err := r.client.Get(ctx, signupKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var session domain.SignupSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *redisSignupSessionRepository) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, signupKeyPrefix+token).Err()
}
