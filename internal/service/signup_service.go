package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// SignupService drives the two-step signup wizard: capture the email and
// role, then submit the role-specific form.
type SignupService struct {
	sessions     repository.SignupSessionRepository
	accounts     *AccountService
	verification *VerificationService
	ttl          time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// SignupDependencies bundles signup service requirements.
type SignupDependencies struct {
	SessionRepo  repository.SignupSessionRepository
	Accounts     *AccountService
	Verification *VerificationService
	TTL          time.Duration
	Logger       *zap.Logger
}

// NewSignupService builds the service.
func NewSignupService(deps SignupDependencies) *SignupService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignupService{
		sessions:     deps.SessionRepo,
		accounts:     deps.Accounts,
		verification: deps.Verification,
		ttl:          ttl,
		logger:       logger,
		now:          time.Now,
	}
}

// Start records the email and chosen role and returns the wizard record.
func (s *SignupService) Start(ctx context.Context, email string, isAgent bool) (*domain.SignupSession, error) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return nil, apperrors.FieldErrors{"email": {"Email is Required."}}
	case !ValidEmail(email):
		return nil, apperrors.FieldErrors{"email": {"Invalid Email Format"}}
	}

	role := domain.RoleCustomer
	if isAgent {
		role = domain.RoleAgent
	}
	session := domain.NewSignupSession(uuid.NewString(), domain.NormalizeEmail(email), role, s.now())
	if err := s.sessions.Save(ctx, session, s.ttl); err != nil {
		return nil, fmt.Errorf("save signup session: %w", err)
	}
	return session, nil
}

// CustomerSignupInput is the second wizard step for customers.
type CustomerSignupInput struct {
	Username  string `form:"username" validate:"required,max=30"`
	Name      string `form:"name" validate:"required,max=100"`
	Phone     string `form:"phone" validate:"max=17,phone"`
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required"`
}

// AgentSignupInput is the second wizard step for agents.
type AgentSignupInput struct {
	Username   string `form:"username" validate:"required,max=30"`
	Name       string `form:"name" validate:"required,max=100"`
	Department string `form:"department" validate:"required,max=50"`
	Phone      string `form:"phone" validate:"max=17,phone"`
	Password1  string `form:"password1" validate:"required"`
	Password2  string `form:"password2" validate:"required"`
}

// CompleteCustomer creates a verified, active customer and closes the wizard.
func (s *SignupService) CompleteCustomer(ctx context.Context, session *domain.SignupSession, input CustomerSignupInput) (*domain.User, error) {
	if !session.AllowsForm(domain.RoleCustomer) {
		return nil, domain.ErrSignupStep
	}
	if err := checkSignupForm(input, input.Password1, input.Password2); err != nil {
		return nil, err
	}
	user, err := s.accounts.CreateAccount(ctx, AccountInput{
		Email:    session.Email,
		Username: input.Username,
		Name:     input.Name,
		Phone:    input.Phone,
		Password: input.Password1,
		Role:     domain.RoleCustomer,
	})
	if err != nil {
		return nil, AccountFieldErrors(err)
	}
	s.finish(ctx, session)
	return user, nil
}

// CompleteAgent creates an inactive, unverified agent, closes the wizard and
// sends the verification email. When delivery fails the account still exists
// and the error is returned alongside it.
func (s *SignupService) CompleteAgent(ctx context.Context, session *domain.SignupSession, input AgentSignupInput) (*domain.User, error) {
	if !session.AllowsForm(domain.RoleAgent) {
		return nil, domain.ErrSignupStep
	}
	if err := checkSignupForm(input, input.Password1, input.Password2); err != nil {
		return nil, err
	}
	user, err := s.accounts.CreateAccount(ctx, AccountInput{
		Email:      session.Email,
		Username:   input.Username,
		Name:       input.Name,
		Phone:      input.Phone,
		Department: input.Department,
		Password:   input.Password1,
		Role:       domain.RoleAgent,
	})
	if err != nil {
		return nil, AccountFieldErrors(err)
	}
	s.finish(ctx, session)

	if err := s.verification.IssueToken(ctx, user); err != nil {
		return user, err
	}
	return user, nil
}

func (s *SignupService) finish(ctx context.Context, session *domain.SignupSession) {
	if err := session.Submit(); err != nil {
		s.logger.Warn("signup session already submitted", zap.String("email", session.Email))
	}
	if err := s.sessions.Delete(ctx, session.Token); err != nil {
		s.logger.Warn("failed to delete signup session", zap.Error(err))
	}
}

func checkSignupForm(input any, password1, password2 string) error {
	fields := validateStruct(input)
	if password1 != "" && password2 != "" && password1 != password2 {
		fields.Add("", "Passwords do not match.")
	}
	return fields.Err()
}
