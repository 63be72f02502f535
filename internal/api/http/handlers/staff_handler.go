package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// ReferencesURL is the admin vocabulary page.
const ReferencesURL = "/admin/references/"

// StaffHandler serves the role dashboards and vocabulary administration.
type StaffHandler struct {
	tickets *service.TicketService
	staff   *service.StaffService
	refs    *service.ReferenceService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(tickets *service.TicketService, staff *service.StaffService, refs *service.ReferenceService) *StaffHandler {
	return &StaffHandler{tickets: tickets, staff: staff, refs: refs}
}

// CustomerDashboard handles GET /dashboard/customer/.
func (h *StaffHandler) CustomerDashboard(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	page, err := h.tickets.ListCustomerTickets(c.UserContext(), user, c.Query("page"))
	if err != nil {
		return err
	}
	return view(c, fiber.Map{
		"tickets": dto.NewTicketSummaries(page.Tickets),
		"page":    page.Page,
	})
}

// AgentDashboard handles GET /dashboard/agent/.
func (h *StaffHandler) AgentDashboard(c *fiber.Ctx) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	dash, err := h.tickets.AgentDashboard(ctx, user)
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
	return view(c, fiber.Map{
		"assigned_count": dash.AssignedCount,
		"open_count":     dash.OpenCount,
		"resolved_count": dash.ResolvedCount,
		"total_tickets":  dash.TotalTickets,
		"recent":         dto.NewTicketSummaries(dash.Recent),
		"choices": fiber.Map{
			"catalog":   dto.NewCatalogResponse(catalog.Categories, catalog.Priorities, catalog.Statuses),
			"customers": customers,
		},
	})
}

// AdminDashboard handles GET /dashboard/admin/.
func (h *StaffHandler) AdminDashboard(c *fiber.Ctx) error {
	overview, err := h.staff.AdminOverview(c.UserContext())
	if err != nil {
		return err
	}
	return view(c, overview)
}

// References handles GET /admin/references/.
func (h *StaffHandler) References(c *fiber.Ctx) error {
	catalog, err := h.refs.Catalog(c.UserContext())
	if err != nil {
		return err
	}
	return view(c, dto.NewCatalogResponse(catalog.Categories, catalog.Priorities, catalog.Statuses))
}

// CreateCategory handles POST /admin/categories/.
func (h *StaffHandler) CreateCategory(c *fiber.Ctx) error {
	category, err := h.refs.CreateCategory(c.UserContext(), service.CategoryInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
	})
	if err != nil {
		return formFailure(c, ReferencesURL, err)
	}
	return auth.Redirect(c, ReferencesURL, auth.FlashSuccess, fmt.Sprintf("Category %q created.", category.Name))
}

// CreatePriority handles POST /admin/priorities/.
func (h *StaffHandler) CreatePriority(c *fiber.Ctx) error {
	level, err := strconv.Atoi(strings.TrimSpace(c.FormValue("level")))
	if err != nil {
		return formFailure(c, ReferencesURL, apperrors.FieldErrors{"level": {"Enter a whole number."}})
	}
	priority, err := h.refs.CreatePriority(c.UserContext(), service.PriorityInput{
		Name:        c.FormValue("name"),
		Level:       level,
		Description: c.FormValue("description"),
	})
	if err != nil {
		return formFailure(c, ReferencesURL, err)
	}
	return auth.Redirect(c, ReferencesURL, auth.FlashSuccess, fmt.Sprintf("Priority %q created.", priority.Name))
}

// CreateStatus handles POST /admin/statuses/.
func (h *StaffHandler) CreateStatus(c *fiber.Ctx) error {
	status, err := h.refs.CreateStatus(c.UserContext(), service.StatusInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
	})
	if err != nil {
		return formFailure(c, ReferencesURL, err)
	}
	return auth.Redirect(c, ReferencesURL, auth.FlashSuccess, fmt.Sprintf("Status %q created.", status.Name))
}
