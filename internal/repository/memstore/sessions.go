package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type expiring[T any] struct {
	value     T
	expiresAt time.Time
}

// SignupSessions is an in-memory repository.SignupSessionRepository.
type SignupSessions struct {
	mu      sync.Mutex
	entries map[string]expiring[domain.SignupSession]
	now     func() time.Time
}

// NewSignupSessions returns an empty signup session store.
func NewSignupSessions() *SignupSessions {
	return &SignupSessions{entries: map[string]expiring[domain.SignupSession]{}, now: time.Now}
}

func (s *SignupSessions) Save(_ context.Context, session *domain.SignupSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session.Token] = expiring[domain.SignupSession]{value: *session, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *SignupSessions) Get(_ context.Context, token string) (*domain.SignupSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok || !s.now().Before(entry.expiresAt) {
		delete(s.entries, token)
		return nil, repository.ErrNotFound
	}
	session := entry.value
	return &session, nil
}

func (s *SignupSessions) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

// Sessions is an in-memory repository.SessionRepository.
type Sessions struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewSessions returns an empty revocation list.
func NewSessions() *Sessions {
	return &Sessions{revoked: map[string]time.Time{}, now: time.Now}
}

func (s *Sessions) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = s.now().Add(ttl)
	return nil
}

func (s *Sessions) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.revoked, jti)
		return false, nil
	}
	return true, nil
}
