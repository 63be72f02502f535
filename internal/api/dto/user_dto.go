package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// LoginRequest is the login form.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

// APISignupResponse answers the JSON signup endpoint.
// Message is a sentence on success and the field error map on failure.
type APISignupResponse struct {
	Success bool `json:"success"`
	Message any  `json:"message"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID         int64       `json:"id"`
	Email      string      `json:"email"`
	Username   string      `json:"username"`
	Name       string      `json:"name"`
	Phone      string      `json:"phone,omitempty"`
	Department string      `json:"department,omitempty"`
	Role       domain.Role `json:"role"`
	IsVerified bool        `json:"is_verified"`
	DateJoined time.Time   `json:"date_joined"`
	LastLogin  *time.Time  `json:"last_login,omitempty"`
}

// NewUserResponse converts an account.
func NewUserResponse(u *domain.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		Name:       u.Name,
		Phone:      u.Phone,
		Department: u.Department,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		DateJoined: u.DateJoined,
		LastLogin:  u.LastLogin,
	}
}
