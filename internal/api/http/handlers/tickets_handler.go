package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// CreateTicketURL is the customer ticket form.
const CreateTicketURL = "/ticket/create/"

// TicketsHandler manages ticket endpoints shared by every role.
type TicketsHandler struct {
	tickets       *service.TicketService
	refs          *service.ReferenceService
	maxAttachment int64
	mediaURL      string
	logger        *zap.Logger
}

// TicketsDependencies bundles handler requirements.
type TicketsDependencies struct {
	Tickets            *service.TicketService
	References         *service.ReferenceService
	MaxAttachmentBytes int64
	MediaURL           string
	Logger             *zap.Logger
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(deps TicketsDependencies) *TicketsHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketsHandler{
		tickets:       deps.Tickets,
		refs:          deps.References,
		maxAttachment: deps.MaxAttachmentBytes,
		mediaURL:      deps.MediaURL,
		logger:        logger,
	}
}

// TicketURL returns the detail page of ticketID.
func TicketURL(ticketID string) string {
	return "/tickets/" + ticketID + "/"
}

// CreateTicketPage handles GET /ticket/create/.
func (h *TicketsHandler) CreateTicketPage(c *fiber.Ctx) error {
	catalog, err := h.refs.Catalog(c.UserContext())
	if err != nil {
		return err
	}
	return view(c, fiber.Map{
		"choices": dto.NewCatalogResponse(catalog.Categories, catalog.Priorities, catalog.Statuses),
	})
}

// CreateTicket handles POST /ticket/create/.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	input, fields, err := h.ticketInput(c)
	if err != nil {
		return err
	}
	if !fields.Empty() {
		return formFailure(c, CreateTicketURL, fields)
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), user, input)
	if err != nil {
		if attachmentError(err) {
			return auth.Redirect(c, CreateTicketURL, auth.FlashError, attachmentMessage(err))
		}
		return formFailure(c, CreateTicketURL, err)
	}
	return auth.Redirect(c, TicketURL(ticket.TicketID), auth.FlashSuccess,
		fmt.Sprintf("Ticket %s created successfully.", ticket.TicketID))
}

// ticketInput reads the shared ticket form fields.
func (h *TicketsHandler) ticketInput(c *fiber.Ctx) (service.TicketInput, apperrors.FieldErrors, error) {
	input := service.TicketInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}
	fields := apperrors.FieldErrors{}
	parseIDs(c, fields, map[string]**int64{
		"category": &input.CategoryID,
		"priority": &input.PriorityID,
	})
	attachment, err := readAttachment(c, "attachments", h.maxAttachment)
	if err != nil {
		return input, fields, err
	}
	input.Attachment = attachment
	return input, fields, nil
}

// TicketDetail handles GET /tickets/:ticket_id/.
func (h *TicketsHandler) TicketDetail(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	detail, err := h.tickets.GetTicketDetail(c.UserContext(), user, c.Params("ticket_id"))
	if err != nil {
		return ticketError(c, user, err)
	}
	return view(c, dto.NewTicketDetail(detail.Ticket, detail.Comments, detail.Attachments, detail.Escalations, h.mediaURL))
}

// AddComment handles POST /tickets/:ticket_id/comments/.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ticketID := c.Params("ticket_id")
	_, err = h.tickets.AddComment(c.UserContext(), user, ticketID, service.CommentInput{Content: c.FormValue("content")})
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) || errors.Is(err, domain.ErrTicketAccessDenied) {
			return ticketError(c, user, err)
		}
		return formFailure(c, TicketURL(ticketID), err)
	}
	return auth.Redirect(c, TicketURL(ticketID), auth.FlashSuccess, "Comment added.")
}

// ticketError maps ticket lookup failures: unknown tickets are 404s and
// foreign tickets send the caller back to their dashboard.
func ticketError(c *fiber.Ctx, user *domain.User, err error) error {
	switch {
	case errors.Is(err, domain.ErrTicketNotFound):
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("ticket_id")})
	case errors.Is(err, domain.ErrTicketAccessDenied):
		return auth.Redirect(c, auth.DashboardURL(user.Role), auth.FlashError, "You do not have access to this ticket.")
	}
	return err
}

func attachmentError(err error) bool {
	return errors.Is(err, domain.ErrAttachmentTooLarge) || errors.Is(err, domain.ErrUnsupportedAttachmentType)
}

// attachmentMessage strips the sentinel prefix from attachment errors.
func attachmentMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
