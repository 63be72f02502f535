package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/observability"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RegisterMiddlewares attaches request ids, request logging, the request
// timeout, cookie encryption and error rendering, outermost first. The
// session and signup cookies are left as issued; every other cookie is
// encrypted with cookieKey (see auth.CookieKey).
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration, cookieKey string) {
	app.Use(requestIDMiddleware())
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key:    cookieKey,
		Except: []string{auth.SessionCookie, auth.SignupCookie},
	}))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

// ErrorHandler renders errors raised before any middleware runs, such as
// an oversized body. Install it as fiber.Config.ErrorHandler.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, toDomainError(err))
	}
}

func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Locals(observability.RequestIDKey, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			domainErr := toDomainError(err)
			metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
			err = writeError(c, logger, domainErr)
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, domainErr *apperrors.DomainError) error {
	if domainErr.HTTPStatus >= 500 {
		logger.Error("request failed",
			zap.String("request_id", observability.RequestID(c)),
			zap.String("code", domainErr.Code),
			zap.Error(domainErr))
	}
	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
}

// toDomainError also keeps the status of fiber's own errors, such as the
// 404 for unknown routes.
func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := "HTTP_ERROR"
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			code = apperrors.CodeNotFound
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case fiber.StatusRequestEntityTooLarge:
			code = "PAYLOAD_TOO_LARGE"
		}
		return &apperrors.DomainError{Code: code, Message: fiberErr.Message, HTTPStatus: fiberErr.Code, Err: err}
	}
	return apperrors.ToDomainError(err)
}
