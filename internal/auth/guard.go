package auth

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Page locations used as guard fallbacks and post-login targets.
const (
	LoginURL             = "/accounts/login/"
	SignupURL            = "/accounts/signup/"
	CustomerDashboardURL = "/dashboard/customer/"
	AgentDashboardURL    = "/dashboard/agent/"
	AdminDashboardURL    = "/dashboard/admin/"
)

// Denial redirects the request to Location, optionally with a flash message.
type Denial struct {
	Location string
	Message  string
}

// Check is one predicate of a guard pipeline. It returns nil to let the
// request through.
type Check func(c *fiber.Ctx, p *Principal) *Denial

// Guard evaluates checks in order and stops at the first denial.
func Guard(checks ...Check) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		for _, check := range checks {
			if denial := check(c, principal); denial != nil {
				return Redirect(c, denial.Location, FlashError, denial.Message)
			}
		}
		return c.Next()
	}
}

// Authenticated denies anonymous requests, sending them to the login page
// with the original location in next.
func Authenticated() Check {
	return func(c *fiber.Ctx, p *Principal) *Denial {
		if p != nil && p.User != nil {
			return nil
		}
		return &Denial{Location: LoginURL + "?next=" + url.QueryEscape(c.OriginalURL())}
	}
}

// HasRole denies principals whose role is not in roles.
func HasRole(fallback, message string, roles ...domain.Role) Check {
	return func(_ *fiber.Ctx, p *Principal) *Denial {
		for _, role := range roles {
			if p.User.Role == role {
				return nil
			}
		}
		return &Denial{Location: fallback, Message: message}
	}
}

// Verified denies principals that have not verified their email.
func Verified() Check {
	return func(_ *fiber.Ctx, p *Principal) *Denial {
		if p.User.IsVerified {
			return nil
		}
		return &Denial{Location: LoginURL, Message: "Please verify your email first."}
	}
}

// RequireLogin allows any authenticated account.
func RequireLogin() fiber.Handler {
	return Guard(Authenticated())
}

// RequireCustomer allows customers only.
func RequireCustomer() fiber.Handler {
	return Guard(Authenticated(), HasRole(LoginURL, "Access denied. Customer access required.", domain.RoleCustomer))
}

// RequireAgent allows agents only.
func RequireAgent() fiber.Handler {
	return Guard(Authenticated(), HasRole(LoginURL, "Access denied. Agent access required.", domain.RoleAgent))
}

// RequireSuperuser allows superusers only.
func RequireSuperuser() fiber.Handler {
	return Guard(Authenticated(), HasRole(LoginURL, "Access denied. Superuser access required.", domain.RoleSuperuser))
}

// RequireStaff allows agents and superusers.
func RequireStaff() fiber.Handler {
	return Guard(Authenticated(), staffRole())
}

// RequireVerifiedStaff allows agents and superusers with a verified email.
func RequireVerifiedStaff() fiber.Handler {
	return Guard(Authenticated(), staffRole(), Verified())
}

func staffRole() Check {
	return HasRole(CustomerDashboardURL, "Access denied. Staff access required.", domain.RoleAgent, domain.RoleSuperuser)
}

// SignupCookie identifies the signup wizard record of the client.
const SignupCookie = "signup_token"

const signupKey = "auth_signup"

// SignupStep admits requests that hold a live wizard record for role and
// exposes it through SignupFromContext.
func SignupStep(sessions repository.SignupSessionRepository, role domain.Role) fiber.Handler {
	return Guard(func(c *fiber.Ctx, _ *Principal) *Denial {
		deny := &Denial{Location: SignupURL}
		token := c.Cookies(SignupCookie)
		if token == "" {
			return deny
		}
		session, err := sessions.Get(c.UserContext(), token)
		if err != nil || !session.AllowsForm(role) {
			return deny
		}
		c.Locals(signupKey, session)
		return nil
	})
}

// SignupFromContext returns the wizard record admitted by SignupStep.
func SignupFromContext(c *fiber.Ctx) (*domain.SignupSession, bool) {
	session, ok := c.Locals(signupKey).(*domain.SignupSession)
	return session, ok && session != nil
}

// DashboardURL returns the landing page for role.
func DashboardURL(role domain.Role) string {
	switch role {
	case domain.RoleAgent:
		return AgentDashboardURL
	case domain.RoleSuperuser:
		return AdminDashboardURL
	default:
		return CustomerDashboardURL
	}
}

// SafeNext returns next when it is a local path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}
