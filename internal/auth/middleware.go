package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	// SessionCookie carries the signed session token.
	SessionCookie = "sessionid"
	principalKey  = "auth_principal"
)

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Claims *Claims
}

// SessionMiddleware resolves the session cookie into a Principal. Requests
// without a valid session continue anonymously; guards decide what to do.
type SessionMiddleware struct {
	tokens   *TokenManager
	users    repository.UserRepository
	sessions repository.SessionRepository
	logger   *zap.Logger
	secure   bool
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager, users repository.UserRepository, sessions repository.SessionRepository, logger *zap.Logger, secure bool) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens, users: users, sessions: sessions, logger: logger, secure: secure}
}

// Load attaches the principal for the current session, if any.
func (m *SessionMiddleware) Load(c *fiber.Ctx) error {
	raw := c.Cookies(SessionCookie)
	if raw == "" {
		return c.Next()
	}

	claims, err := m.tokens.Parse(raw)
	if err != nil {
		m.clearCookie(c)
		return c.Next()
	}

	ctx := c.UserContext()
	revoked, err := m.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		m.logger.Warn("session revocation lookup failed", zap.Error(err))
		return c.Next()
	}
	if revoked {
		m.clearCookie(c)
		return c.Next()
	}

	user, err := m.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.clearCookie(c)
			return c.Next()
		}
		return apperrors.NewInternalError(fmt.Errorf("load session user: %w", err))
	}
	if !user.IsActive {
		m.clearCookie(c)
		return c.Next()
	}

	c.Locals(principalKey, &Principal{User: user, Claims: claims})
	return c.Next()
}

// Login starts a session for user and sets the session cookie.
func (m *SessionMiddleware) Login(c *fiber.Ctx, user *domain.User) error {
	token, claims, err := m.tokens.Issue(user)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals(principalKey, &Principal{User: user, Claims: claims})
	return nil
}

// Logout revokes the current session until its natural expiry.
func (m *SessionMiddleware) Logout(c *fiber.Ctx) error {
	principal, ok := PrincipalFromContext(c)
	if ok {
		if ttl := principal.Claims.Remaining(time.Now()); ttl > 0 {
			if err := m.sessions.Revoke(c.UserContext(), principal.Claims.ID, ttl); err != nil {
				return apperrors.NewInternalError(err)
			}
		}
	}
	m.clearCookie(c)
	c.Locals(principalKey, nil)
	return nil
}

func (m *SessionMiddleware) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *fiber.Ctx) *domain.User {
	if principal, ok := PrincipalFromContext(c); ok {
		return principal.User
	}
	return nil
}
