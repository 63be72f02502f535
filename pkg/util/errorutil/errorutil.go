package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Error codes rendered in the "code" field of error responses.
const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeTimeout      = "TIMEOUT"
	CodeUpstream     = "UPSTREAM_FAILED"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError is an error with the HTTP status and code it renders as.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError reports a malformed request.
func NewValidationError(message string, details map[string]any) error {
	return &DomainError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest, Details: details}
}

// NewNotFound reports a missing resource, e.g. NewNotFound("ticket", ...).
func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return &DomainError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewBadGateway reports a failed call to an outside service such as the
// mail server.
func NewBadGateway(message string, err error) error {
	return &DomainError{
		Code:       CodeUpstream,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// ToDomainError classifies err. Field errors become validation failures,
// missing rows 404s and expired request deadlines 504s; anything else is an
// internal error.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fields FieldErrors
	switch {
	case errors.As(err, &fields):
		return &DomainError{
			Code:       CodeValidation,
			Message:    "validation failed",
			HTTPStatus: http.StatusBadRequest,
			Details:    fields.Details(),
			Err:        err,
		}
	case errors.Is(err, pgx.ErrNoRows):
		return &DomainError{
			Code:       CodeNotFound,
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{},
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &DomainError{
			Code:       CodeTimeout,
			Message:    "request timed out",
			HTTPStatus: http.StatusGatewayTimeout,
			Err:        err,
		}
	}
	return NewInternalError(err).(*DomainError)
}

// FieldErrors collects field-level validation failures keyed by form field.
// The empty key holds form-wide errors.
type FieldErrors map[string][]string

// Add appends a message for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Empty reports whether no errors were recorded.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Err returns f as an error, or nil when empty.
func (f FieldErrors) Err() error {
	if f.Empty() {
		return nil
	}
	return f
}

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k
		if name == "" {
			name = "form"
		}
		parts = append(parts, name+": "+strings.Join(f[k], "; "))
	}
	return strings.Join(parts, ", ")
}

// Details renders f for JSON responses.
func (f FieldErrors) Details() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		key := k
		if key == "" {
			key = "non_field_errors"
		}
		out[key] = v
	}
	return out
}

// Messages flattens f into human readable strings, form-wide errors first.
func (f FieldErrors) Messages() []string {
	var out []string
	out = append(out, f[""]...)
	keys := make([]string, 0, len(f))
	for k := range f {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, msg := range f[k] {
			out = append(out, k+": "+msg)
		}
	}
	return out
}
