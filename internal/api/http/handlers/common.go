package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// view renders a page view model: pending flash messages, the caller and
// the page data.
func view(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"flashes": auth.PopFlashes(c),
		"user":    dto.NewUserResponse(auth.CurrentUser(c)),
		"data":    data,
	})
}

// formFailure reports user input errors as flash messages and redirects to
// location. Other errors are returned for the error middleware.
func formFailure(c *fiber.Ctx, location string, err error) error {
	var fields apperrors.FieldErrors
	if !errors.As(err, &fields) {
		return err
	}
	for _, msg := range fields.Messages() {
		auth.AddFlash(c, auth.FlashError, msg)
	}
	return c.Redirect(location, fiber.StatusFound)
}

// requireUser returns the caller admitted by the guard pipeline.
func requireUser(c *fiber.Ctx) (*domain.User, error) {
	user := auth.CurrentUser(c)
	if user == nil {
		return nil, apperrors.NewUnauthorized("login required")
	}
	return user, nil
}

// readAttachment loads the uploaded file under field. A missing file
// yields nil. At most maxBytes+1 bytes are read so oversized uploads are
// still detected without buffering them whole.
func readAttachment(c *fiber.Ctx, field string, maxBytes int64) (*service.AttachmentInput, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &service.AttachmentInput{FileName: header.Filename, Data: data}, nil
}

// parseIDs reads optional id form fields into targets, collecting field
// errors for malformed values.
func parseIDs(c *fiber.Ctx, fields apperrors.FieldErrors, targets map[string]**int64) {
	for name, target := range targets {
		id, ok := dto.ParseID(c.FormValue(name))
		if !ok {
			fields.Add(name, "Select a valid choice.")
			continue
		}
		*target = id
	}
}
