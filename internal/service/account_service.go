package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AccountService creates accounts and authenticates them.
type AccountService struct {
	users     repository.UserRepository
	passwords auth.PasswordHasher
	logger    *zap.Logger
	now       func() time.Time
}

// AccountDependencies bundles account service requirements.
type AccountDependencies struct {
	UserRepo   repository.UserRepository
	BcryptCost int
	Logger     *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		users:     deps.UserRepo,
		passwords: auth.NewPasswordHasher(deps.BcryptCost),
		logger:    logger,
		now:       time.Now,
	}
}

// AccountInput describes a new account of any role.
type AccountInput struct {
	Email      string      `form:"email"`
	Username   string      `form:"username" validate:"required,max=150"`
	Name       string      `form:"name" validate:"max=255"`
	Phone      string      `form:"phone" validate:"max=17,phone"`
	Department string      `form:"department" validate:"max=100"`
	Password   string      `form:"password" validate:"required"`
	Role       domain.Role `form:"role" validate:"required,oneof=customer agent superuser"`
}

// CreateAccount validates and persists a new account, deriving its flags from
// the role. Agents start inactive and unverified until they redeem their
// verification token.
func (s *AccountService) CreateAccount(ctx context.Context, input AccountInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	if !ValidEmail(email) {
		return nil, domain.ErrInvalidEmailFormat
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Department = strings.TrimSpace(input.Department)
	if fields := validateStruct(input); !fields.Empty() {
		return nil, fields
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}
	exists, err = s.users.UsernameExists(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateUsername
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Username:     input.Username,
		Name:         input.Name,
		Phone:        input.Phone,
		Department:   input.Department,
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     input.Role != domain.RoleAgent,
		DateJoined:   s.now(),
	}
	user.ApplyRoleFlags(true)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("account created",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return user, nil
}

// CreateSuperuser creates an administrator account.
func (s *AccountService) CreateSuperuser(ctx context.Context, email, username, name, password string) (*domain.User, error) {
	return s.CreateAccount(ctx, AccountInput{
		Email:    email,
		Username: username,
		Name:     name,
		Password: password,
		Role:     domain.RoleSuperuser,
	})
}

// Authenticate checks credentials and records the login time. Staff accounts
// that have not verified their email never authenticate.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.passwords.Verify(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	if user.RequiresVerification() {
		return nil, domain.ErrAccountNotVerified
	}
	if !user.IsActive {
		return nil, domain.ErrAccountInactive
	}

	if s.passwords.NeedsRehash(user.PasswordHash) {
		if hash, err := s.passwords.Hash(password); err == nil {
			user.PasswordHash = hash
		} else {
			s.logger.Warn("password rehash failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}
	now := s.now()
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return user, nil
}

// APISignupInput is the JSON customer signup payload.
type APISignupInput struct {
	Email     string `json:"email" form:"email" validate:"required,email,max=254"`
	Username  string `json:"username" form:"username" validate:"required,max=150"`
	Name      string `json:"name" form:"name" validate:"max=255"`
	Phone     string `json:"phone" form:"phone" validate:"max=17,phone"`
	Password1 string `json:"password1" form:"password1" validate:"required,min=5"`
	Password2 string `json:"password2" form:"password2" validate:"required,min=5"`
}

// SignupCustomerAPI registers a verified customer from the JSON API.
func (s *AccountService) SignupCustomerAPI(ctx context.Context, input APISignupInput) (*domain.User, error) {
	fields := validateStruct(input)
	if input.Password1 != "" && input.Password2 != "" && input.Password1 != input.Password2 {
		fields.Add("password2", "The two password fields do not match.")
	}
	if !fields.Empty() {
		return nil, fields
	}

	user, err := s.CreateAccount(ctx, AccountInput{
		Email:    input.Email,
		Username: input.Username,
		Name:     input.Name,
		Phone:    input.Phone,
		Password: input.Password1,
		Role:     domain.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, apperrors.FieldErrors{"email": {"This email is already registered."}}
		}
		return nil, AccountFieldErrors(err)
	}
	return user, nil
}

// AccountFieldErrors turns account creation failures into form field errors.
// Errors that are not about user input are returned unchanged.
func AccountFieldErrors(err error) error {
	var fields apperrors.FieldErrors
	switch {
	case errors.As(err, &fields):
		return fields
	case errors.Is(err, domain.ErrInvalidEmailFormat):
		return apperrors.FieldErrors{"email": {"Enter a valid email address."}}
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apperrors.FieldErrors{"email": {"Email already exists."}}
	case errors.Is(err, domain.ErrDuplicateUsername):
		return apperrors.FieldErrors{"username": {"Username already exists."}}
	case errors.Is(err, auth.ErrPasswordTooLong):
		return apperrors.FieldErrors{"password1": {"Ensure this value has at most 72 characters."}}
	}
	return err
}
