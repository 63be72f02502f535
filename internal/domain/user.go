package domain

import (
	"strings"
	"time"
)

// Role enumerates account types.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAgent     Role = "agent"
	RoleSuperuser Role = "superuser"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleSuperuser:
		return true
	}
	return false
}

// IsStaff reports whether r carries staff privileges.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleSuperuser
}

// User is an account of any role.
type User struct {
	ID                      int64
	Email                   string
	Username                string
	Name                    string
	Phone                   string
	Department              string
	ProfilePic              string
	PasswordHash            string
	Role                    Role
	IsActive                bool
	IsStaff                 bool
	IsSuperuser             bool
	IsVerified              bool
	VerificationToken       *string
	VerificationTokenExpiry *time.Time
	DateJoined              time.Time
	LastLogin               *time.Time
}

// ApplyRoleFlags derives staff, superuser and verification flags from the role.
// creating must be true only for accounts that have not been persisted yet.
func (u *User) ApplyRoleFlags(creating bool) {
	switch u.Role {
	case RoleSuperuser:
		u.IsStaff = true
		u.IsSuperuser = true
		u.IsVerified = true
	case RoleAgent:
		u.IsStaff = true
		u.IsSuperuser = false
		if creating {
			u.IsVerified = false
		}
	default:
		u.IsStaff = false
		u.IsSuperuser = false
		u.IsVerified = true
	}
}

// RequiresVerification reports whether login must wait for email verification.
func (u *User) RequiresVerification() bool {
	return u.Role.IsStaff() && !u.IsVerified
}

// NormalizeEmail lower-cases the domain part, leaving the local part untouched.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
