package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Sessions       *auth.SessionMiddleware
	SignupSessions repository.SignupSessionRepository
	MediaRoot      string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/api/accounts/customer/signup/", cfg.Users.APISignup)

	if cfg.MediaRoot != "" {
		app.Static("/media", cfg.MediaRoot)
	}

	web := app.Group("", cfg.Sessions.Load)

	accounts := web.Group("/accounts")
	accounts.Get("/login/", cfg.Users.LoginPage)
	accounts.Post("/login/", cfg.Users.Login)
	accounts.Get("/logout/", cfg.Users.Logout)
	accounts.Post("/logout/", cfg.Users.Logout)
	accounts.Get("/signup/", cfg.Users.SignupStartPage)
	accounts.Post("/signup/", cfg.Users.SignupStart)

	customerStep := auth.SignupStep(cfg.SignupSessions, domain.RoleCustomer)
	accounts.Get("/signup/customer/", customerStep, cfg.Users.SignupFormPage)
	accounts.Post("/signup/customer/", customerStep, cfg.Users.CustomerSignup)
	agentStep := auth.SignupStep(cfg.SignupSessions, domain.RoleAgent)
	accounts.Get("/signup/agent/", agentStep, cfg.Users.SignupFormPage)
	accounts.Post("/signup/agent/", agentStep, cfg.Users.AgentSignup)

	web.Get("/verify-email/:token/", cfg.Users.VerifyEmail)

	web.Get("/dashboard/customer/", auth.RequireCustomer(), cfg.Staff.CustomerDashboard)
	web.Get("/dashboard/agent/", auth.RequireAgent(), cfg.Staff.AgentDashboard)
	web.Get("/dashboard/admin/", auth.RequireSuperuser(), cfg.Staff.AdminDashboard)

	web.Get("/ticket/create/", auth.RequireLogin(), cfg.Tickets.CreateTicketPage)
	web.Post("/ticket/create/", auth.RequireLogin(), cfg.Tickets.CreateTicket)
	web.Post("/ticket/create/agent/", auth.RequireAgent(), cfg.StaffTickets.AgentCreateTicket)

	web.Get("/tickets/:ticket_id/", auth.RequireLogin(), cfg.Tickets.TicketDetail)
	web.Post("/tickets/:ticket_id/comments/", auth.RequireLogin(), cfg.Tickets.AddComment)

	agent := web.Group("/agent/tickets")
	agent.Get("/list/", auth.RequireAgent(), cfg.StaffTickets.ListTickets)
	agent.Post("/list/", auth.RequireAgent(), cfg.StaffTickets.ListTickets)
	agent.Post("/:ticket_id/escalate/", auth.RequireVerifiedStaff(), cfg.StaffTickets.Escalate)
	agent.Post("/:ticket_id/assign/", auth.RequireVerifiedStaff(), cfg.StaffTickets.Assign)

	admin := web.Group("/admin", auth.RequireSuperuser())
	admin.Get("/references/", cfg.Staff.References)
	admin.Post("/categories/", cfg.Staff.CreateCategory)
	admin.Post("/priorities/", cfg.Staff.CreatePriority)
	admin.Post("/statuses/", cfg.Staff.CreateStatus)
}
