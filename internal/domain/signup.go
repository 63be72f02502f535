package domain

import (
	"errors"
	"time"
)

// SignupState tracks progress through the two-step signup wizard.
type SignupState string

const (
	SignupEmailCaptured     SignupState = "email_captured"
	SignupRoleFormSubmitted SignupState = "role_form_submitted"
)

// ErrSignupStep is returned when a wizard transition is attempted out of order.
var ErrSignupStep = errors.New("signup step out of order")

// SignupSession is the server-side record of a signup in progress.
type SignupSession struct {
	Token     string      `json:"token"`
	Email     string      `json:"email"`
	Role      Role        `json:"role"`
	State     SignupState `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewSignupSession captures the email and role chosen in the first step.
func NewSignupSession(token, email string, role Role, now time.Time) *SignupSession {
	return &SignupSession{
		Token:     token,
		Email:     email,
		Role:      role,
		State:     SignupEmailCaptured,
		CreatedAt: now,
	}
}

// AllowsForm reports whether the role form for role may be shown or submitted.
func (s *SignupSession) AllowsForm(role Role) bool {
	return s != nil && s.State == SignupEmailCaptured && s.Role == role
}

// Submit moves the wizard to its terminal state.
func (s *SignupSession) Submit() error {
	if s.State != SignupEmailCaptured {
		return ErrSignupStep
	}
	s.State = SignupRoleFormSubmitted
	return nil
}
