package domain

import "errors"

// Account errors.
var (
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotVerified = errors.New("email not verified")
	ErrAccountInactive    = errors.New("account inactive")
	ErrInvalidRole        = errors.New("invalid role")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUserNotFound       = errors.New("user not found")
)

// Verification token errors.
var (
	ErrTokenNotFound = errors.New("verification token not found")
	ErrNotAnAgent    = errors.New("account is not an agent")
	ErrTokenExpired  = errors.New("verification token expired")
)

// Ticket errors.
var (
	ErrAttachmentTooLarge        = errors.New("attachment exceeds size limit")
	ErrUnsupportedAttachmentType = errors.New("attachment type not supported")
	ErrTicketNotFound            = errors.New("ticket not found")
	ErrReferenceNotFound         = errors.New("reference not found")
	ErrReasonRequired            = errors.New("reason is required")
	ErrNotACustomer              = errors.New("account is not a customer")
	ErrNotAnAgentAssignee        = errors.New("assignee is not an agent")
	ErrTicketAccessDenied        = errors.New("ticket access denied")
)
