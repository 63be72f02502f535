package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Signup wizard page locations.
const (
	CustomerSignupURL = "/accounts/signup/customer/"
	AgentSignupURL    = "/accounts/signup/agent/"
)

// UsersHandler exposes login, logout, signup and verification endpoints.
type UsersHandler struct {
	accounts     *service.AccountService
	signup       *service.SignupService
	verification *service.VerificationService
	sessions     *auth.SessionMiddleware
	signupTTL    time.Duration
	secure       bool
	logger       *zap.Logger
}

// UsersDependencies bundles handler requirements.
type UsersDependencies struct {
	Accounts     *service.AccountService
	Signup       *service.SignupService
	Verification *service.VerificationService
	Sessions     *auth.SessionMiddleware
	SignupTTL    time.Duration
	Secure       bool
	Logger       *zap.Logger
}

// NewUsersHandler constructs handler.
func NewUsersHandler(deps UsersDependencies) *UsersHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsersHandler{
		accounts:     deps.Accounts,
		signup:       deps.Signup,
		verification: deps.Verification,
		sessions:     deps.Sessions,
		signupTTL:    deps.SignupTTL,
		secure:       deps.Secure,
		logger:       logger,
	}
}

// LoginPage handles GET /accounts/login/.
func (h *UsersHandler) LoginPage(c *fiber.Ctx) error {
	if user := auth.CurrentUser(c); user != nil {
		return c.Redirect(auth.DashboardURL(user.Role), fiber.StatusFound)
	}
	return view(c, fiber.Map{"next": c.Query("next")})
}

// Login handles POST /accounts/login/.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return auth.Redirect(c, auth.LoginURL, auth.FlashError, "Invalid email or password.")
	}
	if req.Email == "" || req.Password == "" {
		return auth.Redirect(c, auth.LoginURL, auth.FlashError, "Invalid email or password.")
	}

	user, err := h.accounts.Authenticate(c.UserContext(), req.Email, req.Password)
	switch {
	case errors.Is(err, domain.ErrAccountNotVerified):
		return auth.Redirect(c, auth.LoginURL, auth.FlashError, "Your Email is not verified!. Check your mail inbox for verification link.")
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrAccountInactive):
		return auth.Redirect(c, auth.LoginURL, auth.FlashError, "Invalid email or password.")
	case err != nil:
		return err
	}

	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect(auth.SafeNext(req.Next, auth.DashboardURL(user.Role)), fiber.StatusFound)
}

// Logout handles /accounts/logout/.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c); err != nil {
		return err
	}
	return auth.Redirect(c, auth.LoginURL, auth.FlashSuccess, "You have been logged out successfully!")
}

// SignupStartPage handles GET /accounts/signup/.
func (h *UsersHandler) SignupStartPage(c *fiber.Ctx) error {
	return view(c, fiber.Map{"step": 1})
}

// SignupStart handles POST /accounts/signup/.
func (h *UsersHandler) SignupStart(c *fiber.Ctx) error {
	isAgent := checkbox(c.FormValue("is_agent"))
	session, err := h.signup.Start(c.UserContext(), c.FormValue("email"), isAgent)
	if err != nil {
		var fields apperrors.FieldErrors
		if errors.As(err, &fields) {
			return auth.Redirect(c, auth.SignupURL, auth.FlashError, "error: "+fields["email"][0])
		}
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     auth.SignupCookie,
		Value:    session.Token,
		Path:     "/accounts/signup/",
		Expires:  time.Now().Add(h.signupTTL),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	if isAgent {
		return c.Redirect(AgentSignupURL, fiber.StatusFound)
	}
	return c.Redirect(CustomerSignupURL, fiber.StatusFound)
}

// SignupFormPage handles GET on either role form of the wizard.
func (h *UsersHandler) SignupFormPage(c *fiber.Ctx) error {
	session, _ := auth.SignupFromContext(c)
	return view(c, fiber.Map{"step": 2, "email": session.Email, "role": session.Role})
}

// CustomerSignup handles POST /accounts/signup/customer/.
func (h *UsersHandler) CustomerSignup(c *fiber.Ctx) error {
	session, _ := auth.SignupFromContext(c)
	var input service.CustomerSignupInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid form", nil)
	}
	user, err := h.signup.CompleteCustomer(c.UserContext(), session, input)
	if err != nil {
		return formFailure(c, CustomerSignupURL, err)
	}
	h.clearSignupCookie(c)
	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return auth.Redirect(c, auth.CustomerDashboardURL, auth.FlashSuccess, "Welcome! Your account has been created successfully.")
}

// AgentSignup handles POST /accounts/signup/agent/.
func (h *UsersHandler) AgentSignup(c *fiber.Ctx) error {
	session, _ := auth.SignupFromContext(c)
	var input service.AgentSignupInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid form", nil)
	}
	user, err := h.signup.CompleteAgent(c.UserContext(), session, input)
	if err != nil && user == nil {
		return formFailure(c, AgentSignupURL, err)
	}
	h.clearSignupCookie(c)
	if err != nil {
		return apperrors.NewBadGateway("account created but the verification email could not be sent", err)
	}
	return auth.Redirect(c, auth.LoginURL, auth.FlashSuccess,
		"Registration submitted successfully! Please check your email for verification link and wait for admin approval.")
}

func checkbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func (h *UsersHandler) clearSignupCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.SignupCookie,
		Value:    "",
		Path:     "/accounts/signup/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// VerifyEmail handles GET /verify-email/:token/.
func (h *UsersHandler) VerifyEmail(c *fiber.Ctx) error {
	_, err := h.verification.RedeemToken(c.UserContext(), c.Params("token"))
	switch {
	case err == nil:
		return auth.Redirect(c, auth.LoginURL, auth.FlashSuccess, "Email verified successfully! You can now login as agent.")
	case errors.Is(err, domain.ErrTokenExpired):
		return auth.Redirect(c, auth.LoginURL, auth.FlashError, "Verification link has expired.")
	case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrNotAnAgent):
		return auth.Redirect(c, auth.LoginURL, auth.FlashError, "Invalid verification link.")
	default:
		h.logger.Error("verification failed", zap.Error(err))
		return auth.Redirect(c, auth.LoginURL, auth.FlashError, "Invalid or expired verification link.")
	}
}

// APISignup handles POST /api/accounts/customer/signup/.
const signupFailedMessage = "Registration failed. Please try again later."

func (h *UsersHandler) APISignup(c *fiber.Ctx) error {
	var input service.APISignupInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(http.StatusBadRequest).JSON(dto.APISignupResponse{Success: false, Message: "invalid payload"})
	}
	user, err := h.accounts.SignupCustomerAPI(c.UserContext(), input)
	if err != nil {
		var fields apperrors.FieldErrors
		if errors.As(err, &fields) {
			return c.Status(http.StatusBadRequest).JSON(dto.APISignupResponse{Success: false, Message: fields.Details()})
		}
		h.logger.Error("api signup failed", zap.Error(err), zap.String("request_id", observability.RequestID(c)))
		return c.Status(http.StatusInternalServerError).JSON(dto.APISignupResponse{Success: false, Message: signupFailedMessage})
	}
	h.logger.Info("customer registered", zap.Int64("user_id", user.ID))
	return c.Status(http.StatusCreated).JSON(dto.APISignupResponse{Success: true, Message: "Customer Registered Successfully"})
}
