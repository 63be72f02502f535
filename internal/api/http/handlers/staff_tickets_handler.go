package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// StaffTicketsHandler handles agent ticket workflows.
type StaffTicketsHandler struct {
	*TicketsHandler
	staff *service.StaffService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(tickets *TicketsHandler, staff *service.StaffService) *StaffTicketsHandler {
	return &StaffTicketsHandler{TicketsHandler: tickets, staff: staff}
}

// AgentCreateTicket handles POST /ticket/create/agent/. Every failure is
// logged and reported through a flash message on the agent dashboard.
func (h *StaffTicketsHandler) AgentCreateTicket(c *fiber.Ctx) error {
	agent, err := requireUser(c)
	if err != nil {
		return err
	}
	base, fields, err := h.ticketInput(c)
	if err != nil {
		h.logger.Error("agent ticket upload failed", zap.Error(err))
		return auth.Redirect(c, auth.AgentDashboardURL, auth.FlashError, "Error creating ticket. Please try again.")
	}
	input := service.AgentTicketInput{
		TicketInput: base,
		Channel:     domain.Channel(c.FormValue("channel")),
	}
	var customerID *int64
	parseIDs(c, fields, map[string]**int64{
		"customer": &customerID,
		"status":   &input.StatusID,
	})
	if customerID != nil {
		input.CustomerID = *customerID
	}
	if !fields.Empty() {
		return formFailure(c, auth.AgentDashboardURL, fields)
	}

	ticket, err := h.tickets.AgentCreateTicket(c.UserContext(), agent, input)
	if err != nil {
		h.logger.Warn("agent ticket creation failed", zap.Int64("agent_id", agent.ID), zap.Error(err))
		switch {
		case attachmentError(err):
			return auth.Redirect(c, auth.AgentDashboardURL, auth.FlashError, attachmentMessage(err))
		case errors.Is(err, domain.ErrNotACustomer):
			return auth.Redirect(c, auth.AgentDashboardURL, auth.FlashError, "Selected customer is not a customer account.")
		}
		var fe apperrors.FieldErrors
		if errors.As(err, &fe) {
			return formFailure(c, auth.AgentDashboardURL, fe)
		}
		return auth.Redirect(c, auth.AgentDashboardURL, auth.FlashError, "Error creating ticket. Please try again.")
	}
	return auth.Redirect(c, auth.AgentDashboardURL, auth.FlashSuccess,
		fmt.Sprintf("Ticket %s created successfully.", ticket.TicketID))
}

// ListTickets handles GET and POST /agent/tickets/list/. Filters come from
// the query string or the posted form.
func (h *StaffTicketsHandler) ListTickets(c *fiber.Ctx) error {
	ctx := c.UserContext()
	raw := service.TicketFilterInput{
		Customer: c.FormValue("customer"),
		Agent:    c.FormValue("agent"),
		Priority: c.FormValue("priority"),
		Status:   c.FormValue("status"),
		Category: c.FormValue("category"),
		Channel:  c.FormValue("channel"),
		FromDate: c.FormValue("from_date"),
		ToDate:   c.FormValue("to_date"),
	}
	filter, fields := raw.Filter()
	for _, msg := range fields.Messages() {
		auth.AddFlash(c, auth.FlashWarning, msg)
	}

	page, err := h.tickets.ListTickets(ctx, filter, c.FormValue("page"))
	if err != nil {
		return err
	}
	catalog, err := h.refs.Catalog(ctx)
	if err != nil {
		return err
	}
	customers, err := h.staff.ListCustomers(ctx)
	if err != nil {
		return err
	}
	agents, err := h.staff.ListAgents(ctx)
	if err != nil {
		return err
	}
	return view(c, fiber.Map{
		"tickets": dto.NewTicketSummaries(page.Tickets),
		"page":    page.Page,
		"filter":  raw,
		"errors":  fields.Details(),
		"choices": fiber.Map{
			"catalog":   dto.NewCatalogResponse(catalog.Categories, catalog.Priorities, catalog.Statuses),
			"customers": customers,
			"agents":    agents,
		},
	})
}

// Escalate handles POST /agent/tickets/:ticket_id/escalate/.
func (h *StaffTicketsHandler) Escalate(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	ticketID := c.Params("ticket_id")
	input := service.EscalationInput{Reason: c.FormValue("reason")}
	fields := apperrors.FieldErrors{}
	parseIDs(c, fields, map[string]**int64{
		"new_agent":    &input.NewAgentID,
		"new_priority": &input.NewPriorityID,
		"new_status":   &input.NewStatusID,
	})
	if !fields.Empty() {
		return formFailure(c, TicketURL(ticketID), fields)
	}

	_, _, err = h.tickets.Escalate(c.UserContext(), actor, ticketID, input)
	if err != nil {
		return h.escalationError(c, actor, ticketID, err)
	}
	return auth.Redirect(c, TicketURL(ticketID), auth.FlashSuccess, "Ticket escalated successfully.")
}

// Assign handles POST /agent/tickets/:ticket_id/assign/.
func (h *StaffTicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := requireUser(c)
	if err != nil {
		return err
	}
	ticketID := c.Params("ticket_id")
	agentID, ok := dto.ParseID(c.FormValue("agent"))
	if !ok || agentID == nil {
		return auth.Redirect(c, TicketURL(ticketID), auth.FlashError, "agent: Select a valid choice.")
	}
	if _, err := h.tickets.AssignTicket(c.UserContext(), actor, ticketID, *agentID); err != nil {
		return h.escalationError(c, actor, ticketID, err)
	}
	return auth.Redirect(c, TicketURL(ticketID), auth.FlashSuccess, "Ticket assigned successfully.")
}

func (h *StaffTicketsHandler) escalationError(c *fiber.Ctx, actor *domain.User, ticketID string, err error) error {
	switch {
	case errors.Is(err, domain.ErrReasonRequired):
		return auth.Redirect(c, TicketURL(ticketID), auth.FlashError, "Reason for escalation is required.")
	case errors.Is(err, domain.ErrNotAnAgentAssignee):
		return auth.Redirect(c, TicketURL(ticketID), auth.FlashError, "Tickets can only be assigned to agents.")
	case errors.Is(err, domain.ErrReferenceNotFound):
		return auth.Redirect(c, TicketURL(ticketID), auth.FlashError, "Select a valid priority and status.")
	}
	return ticketError(c, actor, err)
}
