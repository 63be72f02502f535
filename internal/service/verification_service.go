package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/repository"
)

const verificationTokenBytes = 32

// VerificationService issues and redeems agent email verification tokens.
type VerificationService struct {
	users    repository.UserRepository
	sender   mail.Sender
	siteURL  string
	siteName string
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// VerificationDependencies bundles verification service requirements.
type VerificationDependencies struct {
	UserRepo repository.UserRepository
	Sender   mail.Sender
	SiteURL  string
	SiteName string
	TTL      time.Duration
	Logger   *zap.Logger
}

// NewVerificationService builds the service.
func NewVerificationService(deps VerificationDependencies) *VerificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &VerificationService{
		users:    deps.UserRepo,
		sender:   deps.Sender,
		siteURL:  strings.TrimRight(deps.SiteURL, "/"),
		siteName: deps.SiteName,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// VerificationURL returns the public link that redeems token.
func (s *VerificationService) VerificationURL(token string) string {
	return fmt.Sprintf("%s/verify-email/%s/", s.siteURL, token)
}

// IssueToken stores a fresh token on the account and emails the link. A
// delivery failure is logged and returned; the token stays persisted.
func (s *VerificationService) IssueToken(ctx context.Context, user *domain.User) error {
	token, err := newVerificationToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	expiry := s.now().Add(s.ttl)
	user.VerificationToken = &token
	user.VerificationTokenExpiry = &expiry
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	msg := mail.Message{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Verify Your %s Agent Account", s.siteName),
		Body: fmt.Sprintf("Hello %s,\n\nPlease verify your email address by visiting the link below:\n\n%s\n\nThis link expires at %s.\n",
			displayName(user), s.VerificationURL(token), expiry.UTC().Format(time.RFC1123)),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send verification email",
			zap.Int64("user_id", user.ID),
			zap.String("email", user.Email),
			zap.Error(err))
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// RedeemToken verifies and activates the agent holding token.
func (s *VerificationService) RedeemToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrTokenNotFound
	}
	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	if user.Role != domain.RoleAgent {
		return nil, domain.ErrNotAnAgent
	}
	if user.VerificationTokenExpiry != nil && user.VerificationTokenExpiry.Before(s.now()) {
		user.VerificationToken = nil
		user.VerificationTokenExpiry = nil
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("clear expired token: %w", err)
		}
		return nil, domain.ErrTokenExpired
	}

	user.IsVerified = true
	user.IsActive = true
	user.VerificationToken = nil
	user.VerificationTokenExpiry = nil
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("verify account: %w", err)
	}
	s.logger.Info("agent verified", zap.Int64("user_id", user.ID))
	return user, nil
}

func newVerificationToken() (string, error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func displayName(user *domain.User) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Username
}
