package http_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository/memstore"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
)

type outbox struct {
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.sent = append(o.sent, msg)
	return nil
}

type testServer struct {
	app      *fiber.App
	store    *memstore.Store
	outbox   *outbox
	tokens   *auth.TokenManager
	accounts *service.AccountService
	tickets  *service.TicketService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := memstore.New()
	signups := memstore.NewSignupSessions()
	sessions := memstore.NewSessions()
	box := &outbox{}
	mediaRoot := t.TempDir()

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	accounts := service.NewAccountService(service.AccountDependencies{UserRepo: store.Users(), BcryptCost: 4})
	verification := service.NewVerificationService(service.VerificationDependencies{
		UserRepo: store.Users(), Sender: box, SiteURL: "http://testserver", SiteName: "Help Desk",
	})
	signup := service.NewSignupService(service.SignupDependencies{
		SessionRepo: signups, Accounts: accounts, Verification: verification,
	})
	refs := service.NewReferenceService(store.References(), logger)
	defaults, err := refs.EnsureDefaults(ctx, "Low", "Open")
	if err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	tickets := service.NewTicketService(service.TicketDependencies{
		Store: store, Files: storage.NewLocalStore(mediaRoot), Defaults: defaults, ResolvedStatus: "Resolved",
	})
	staff := service.NewStaffService(store)
	sessionMW := auth.NewSessionMiddleware(tokens, store.Users(), sessions, logger, false)

	ticketsHandler := handlers.NewTicketsHandler(handlers.TicketsDependencies{
		Tickets: tickets, References: refs, MaxAttachmentBytes: 5 * 1024 * 1024, MediaURL: "/media",
	})
	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, time.Second, auth.CookieKey("test-secret"))
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler("helpdesk", "test", map[string]handlers.Pinger{"postgres": nil}, metrics),
		Users: handlers.NewUsersHandler(handlers.UsersDependencies{
			Accounts: accounts, Signup: signup, Verification: verification, Sessions: sessionMW, SignupTTL: time.Minute,
		}),
		Staff:          handlers.NewStaffHandler(tickets, staff, refs),
		Tickets:        ticketsHandler,
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketsHandler, staff),
		Sessions:       sessionMW,
		SignupSessions: signups,
	})
	return &testServer{app: app, store: store, outbox: box, tokens: tokens, accounts: accounts, tickets: tickets}
}

func (s *testServer) user(t *testing.T, role domain.Role, email, username string) *domain.User {
	t.Helper()
	u, err := s.accounts.CreateAccount(context.Background(), service.AccountInput{
		Email: email, Username: username, Name: username, Password: "secret123", Role: role,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if role == domain.RoleAgent {
		u.IsActive = true
		u.IsVerified = true
		if err := s.store.Users().Update(context.Background(), u); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	return u
}

func (s *testServer) session(t *testing.T, u *domain.User) *http.Cookie {
	t.Helper()
	token, _, err := s.tokens.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookie, Value: token}
}

func (s *testServer) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func cookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	return nil
}

func flashes(t *testing.T, resp *http.Response) []auth.Flash {
	t.Helper()
	c := cookie(resp, auth.FlashCookie)
	if c == nil {
		return nil
	}
	plain, err := encryptcookie.DecryptCookie(c.Value, auth.CookieKey("test-secret"))
	if err != nil {
		t.Fatalf("decrypt flash: %v", err)
	}
	if plain == "" {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(plain)
	if err != nil {
		t.Fatalf("decode flash: %v", err)
	}
	var out []auth.Flash
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("unmarshal flash: %v", err)
	}
	return out
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != fiber.StatusFound {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 302; body %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestAnonymousRedirectsToLoginWithNext(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/agent/", nil))
	expectRedirect(t, resp, "/accounts/login/?next=%2Fdashboard%2Fagent%2F")
	if len(flashes(t, resp)) != 0 {
		t.Fatal("anonymous redirect carried a flash")
	}
}

func TestRoleGuardFlashesAndRedirects(t *testing.T) {
	srv := newTestServer(t)
	customer := srv.user(t, domain.RoleCustomer, "c@example.com", "cust")
	resp := srv.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/agent/", nil), srv.session(t, customer))
	expectRedirect(t, resp, auth.LoginURL)
	got := flashes(t, resp)
	if len(got) != 1 || got[0].Message != "Access denied. Agent access required." {
		t.Fatalf("flashes = %+v", got)
	}

	// the flash is shown once on the next page
	page := srv.do(t, httptest.NewRequest(http.MethodGet, "/accounts/login/", nil), cookie(resp, auth.FlashCookie))
	var body struct {
		Flashes []auth.Flash `json:"flashes"`
	}
	decode(t, page, &body)
	if len(body.Flashes) != 1 || body.Flashes[0].Level != auth.FlashError {
		t.Fatalf("page flashes = %+v", body.Flashes)
	}
}


func TestForgedFlashCookieIsIgnored(t *testing.T) {
	srv := newTestServer(t)
	forged := base64.RawURLEncoding.EncodeToString([]byte(`[{"level":"success","message":"Your account was credited."}]`))
	page := srv.do(t, httptest.NewRequest(http.MethodGet, "/accounts/login/", nil), &http.Cookie{Name: auth.FlashCookie, Value: forged})
	var body struct {
		Flashes []auth.Flash `json:"flashes"`
	}
	decode(t, page, &body)
	if len(body.Flashes) != 0 {
		t.Fatalf("forged flashes rendered: %+v", body.Flashes)
	}
}

func TestLoginAndLogout(t *testing.T) {
	srv := newTestServer(t)
	srv.user(t, domain.RoleCustomer, "c@example.com", "cust")

	resp := srv.do(t, formRequest(http.MethodPost, "/accounts/login/", url.Values{"email": {"c@example.com"}, "password": {"wrong"}}))
	expectRedirect(t, resp, auth.LoginURL)
	if got := flashes(t, resp); len(got) != 1 || got[0].Message != "Invalid email or password." {
		t.Fatalf("flashes = %+v", got)
	}

	resp = srv.do(t, formRequest(http.MethodPost, "/accounts/login/", url.Values{"email": {"c@example.com"}, "password": {"secret123"}}))
	expectRedirect(t, resp, auth.CustomerDashboardURL)
	session := cookie(resp, auth.SessionCookie)
	if session == nil {
		t.Fatal("no session cookie")
	}
	if resp := srv.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/customer/", nil), session); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}

	resp = srv.do(t, httptest.NewRequest(http.MethodPost, "/accounts/logout/", nil), session)
	expectRedirect(t, resp, auth.LoginURL)
	resp = srv.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/customer/", nil), session)
	expectRedirect(t, resp, "/accounts/login/?next=%2Fdashboard%2Fcustomer%2F")
}

func TestUnverifiedAgentCannotLogin(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.accounts.CreateAccount(context.Background(), service.AccountInput{
		Email: "a@example.com", Username: "agent", Password: "secret123", Role: domain.RoleAgent,
	}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	resp := srv.do(t, formRequest(http.MethodPost, "/accounts/login/", url.Values{"email": {"a@example.com"}, "password": {"secret123"}}))
	expectRedirect(t, resp, auth.LoginURL)
	if cookie(resp, auth.SessionCookie) != nil {
		t.Fatal("unverified agent got a session")
	}
}

func TestAgentSignupWizardAndVerification(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, formRequest(http.MethodPost, "/accounts/signup/", url.Values{"email": {"new.agent@example.com"}, "is_agent": {"on"}}))
	expectRedirect(t, resp, handlers.AgentSignupURL)
	wizard := cookie(resp, auth.SignupCookie)
	if wizard == nil {
		t.Fatal("no signup cookie")
	}

	resp = srv.do(t, httptest.NewRequest(http.MethodGet, handlers.CustomerSignupURL, nil), wizard)
	expectRedirect(t, resp, auth.SignupURL)

	resp = srv.do(t, formRequest(http.MethodPost, handlers.AgentSignupURL, url.Values{
		"username": {"newagent"}, "name": {"New Agent"}, "department": {"Support"},
		"password1": {"pw12345"}, "password2": {"pw12345"},
	}), wizard)
	expectRedirect(t, resp, auth.LoginURL)
	if len(srv.outbox.sent) != 1 {
		t.Fatalf("sent %d emails", len(srv.outbox.sent))
	}

	resp = srv.do(t, formRequest(http.MethodPost, handlers.AgentSignupURL, url.Values{
		"username": {"again"}, "name": {"Again"}, "department": {"Support"},
		"password1": {"pw12345"}, "password2": {"pw12345"},
	}), wizard)
	expectRedirect(t, resp, auth.SignupURL)

	agent, err := srv.store.Users().GetByEmail(context.Background(), "new.agent@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	resp = srv.do(t, httptest.NewRequest(http.MethodGet, "/verify-email/"+*agent.VerificationToken+"/", nil))
	expectRedirect(t, resp, auth.LoginURL)
	if got := flashes(t, resp); len(got) != 1 || got[0].Level != auth.FlashSuccess {
		t.Fatalf("flashes = %+v", got)
	}

	resp = srv.do(t, httptest.NewRequest(http.MethodGet, "/verify-email/"+*agent.VerificationToken+"/", nil))
	if got := flashes(t, resp); len(got) != 1 || got[0].Message != "Invalid verification link." {
		t.Fatalf("second redemption flashes = %+v", got)
	}

	resp = srv.do(t, formRequest(http.MethodPost, "/accounts/login/", url.Values{"email": {"new.agent@example.com"}, "password": {"pw12345"}}))
	expectRedirect(t, resp, auth.AgentDashboardURL)
}

func TestSignupStartRejectsBadEmail(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.do(t, formRequest(http.MethodPost, "/accounts/signup/", url.Values{"email": {"nope"}}))
	expectRedirect(t, resp, auth.SignupURL)
	if got := flashes(t, resp); len(got) != 1 || got[0].Message != "error: Invalid Email Format" {
		t.Fatalf("flashes = %+v", got)
	}
}

func TestAPISignup(t *testing.T) {
	srv := newTestServer(t)
	payload := `{"email":"api@example.com","username":"api","name":"Api","phone":"+1234567890","password1":"hunter22","password2":"hunter22"}`

	req := httptest.NewRequest(http.MethodPost, "/api/accounts/customer/signup/", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := srv.do(t, req)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var ok struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decode(t, resp, &ok)
	if !ok.Success || ok.Message != "Customer Registered Successfully" {
		t.Fatalf("body = %+v", ok)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/accounts/customer/signup/", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp = srv.do(t, req)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("duplicate status = %d", resp.StatusCode)
	}
	var failed struct {
		Success bool                `json:"success"`
		Message map[string][]string `json:"message"`
	}
	decode(t, resp, &failed)
	if failed.Success || failed.Message["email"][0] != "This email is already registered." {
		t.Fatalf("body = %+v", failed)
	}
}

func multipartTicket(t *testing.T, target string, fields map[string]string, fileName string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if fileName != "" {
		part, err := w.CreateFormFile("attachments", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	customer := srv.user(t, domain.RoleCustomer, "a@x.com", "a")
	stranger := srv.user(t, domain.RoleCustomer, "b@x.com", "b")
	agent := srv.user(t, domain.RoleAgent, "agent@x.com", "agent")

	pdf := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("0"), 2048)...)
	resp := srv.do(t, multipartTicket(t, "/ticket/create/", map[string]string{"title": "Outage", "description": "down"}, "report.pdf", pdf), srv.session(t, customer))
	expectRedirect(t, resp, "/tickets/TKT1001/")

	resp = srv.do(t, multipartTicket(t, "/ticket/create/", map[string]string{"title": "Text", "description": "file"}, "notes.pdf", []byte("plain text")), srv.session(t, customer))
	expectRedirect(t, resp, handlers.CreateTicketURL)
	if got := flashes(t, resp); len(got) != 1 || !strings.Contains(got[0].Message, "not a supported type") {
		t.Fatalf("flashes = %+v", got)
	}

	resp = srv.do(t, httptest.NewRequest(http.MethodGet, "/tickets/TKT1001/", nil), srv.session(t, stranger))
	expectRedirect(t, resp, auth.CustomerDashboardURL)

	resp = srv.do(t, httptest.NewRequest(http.MethodGet, "/tickets/TKT9999/", nil), srv.session(t, customer))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("missing ticket status = %d", resp.StatusCode)
	}

	urgent, err := srv.store.References().GetPriorityByName(context.Background(), "Urgent")
	if err != nil {
		t.Fatalf("GetPriorityByName: %v", err)
	}
	resp = srv.do(t, formRequest(http.MethodPost, "/agent/tickets/TKT1001/escalate/", url.Values{
		"new_priority": {"abc"}, "reason": {"SLA breach"},
	}), srv.session(t, agent))
	expectRedirect(t, resp, "/tickets/TKT1001/")
	resp = srv.do(t, formRequest(http.MethodPost, "/agent/tickets/TKT1001/escalate/", url.Values{
		"new_priority": {jsonID(urgent.ID)}, "reason": {"SLA breach"},
	}), srv.session(t, agent))
	expectRedirect(t, resp, "/tickets/TKT1001/")
	if got := flashes(t, resp); len(got) != 1 || got[0].Message != "Ticket escalated successfully." {
		t.Fatalf("flashes = %+v", got)
	}

	resp = srv.do(t, formRequest(http.MethodPost, "/tickets/TKT1001/comments/", url.Values{"content": {"On it"}}), srv.session(t, agent))
	expectRedirect(t, resp, "/tickets/TKT1001/")

	resp = srv.do(t, httptest.NewRequest(http.MethodGet, "/tickets/TKT1001/", nil), srv.session(t, customer))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("detail status = %d", resp.StatusCode)
	}
	var detail struct {
		Data struct {
			TicketID    string `json:"ticket_id"`
			PriorityID  int64  `json:"priority_id"`
			Attachments []struct {
				MimeType string `json:"mime_type"`
			} `json:"attachments"`
			Comments    []json.RawMessage `json:"comments"`
			Escalations []struct {
				Reason string `json:"reason"`
			} `json:"escalations"`
		} `json:"data"`
	}
	decode(t, resp, &detail)
	d := detail.Data
	if d.PriorityID != urgent.ID || len(d.Attachments) != 1 || len(d.Comments) != 1 || len(d.Escalations) != 1 || d.Escalations[0].Reason != "SLA breach" {
		t.Fatalf("detail = %+v", d)
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestAgentTicketListPagination(t *testing.T) {
	srv := newTestServer(t)
	customer := srv.user(t, domain.RoleCustomer, "c@example.com", "cust")
	agent := srv.user(t, domain.RoleAgent, "a@example.com", "agent")
	for i := 0; i < 12; i++ {
		if _, err := srv.tickets.CreateTicket(context.Background(), customer, service.TicketInput{Title: "t", Description: "d"}); err != nil {
			t.Fatalf("CreateTicket: %v", err)
		}
	}

	tests := []struct {
		query      string
		wantNumber int
		wantCount  int
	}{
		{query: "page=abc", wantNumber: 1, wantCount: 10},
		{query: "page=9999", wantNumber: 2, wantCount: 2},
		{query: "channel=chat", wantNumber: 1, wantCount: 0},
	}
	for _, tt := range tests {
		resp := srv.do(t, httptest.NewRequest(http.MethodGet, "/agent/tickets/list/?"+tt.query, nil), srv.session(t, agent))
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("%s: status = %d", tt.query, resp.StatusCode)
		}
		var body struct {
			Data struct {
				Tickets []json.RawMessage `json:"tickets"`
				Page    service.Page      `json:"page"`
			} `json:"data"`
		}
		decode(t, resp, &body)
		if body.Data.Page.Number != tt.wantNumber || len(body.Data.Tickets) != tt.wantCount {
			t.Fatalf("%s: page %d with %d tickets", tt.query, body.Data.Page.Number, len(body.Data.Tickets))
		}
	}
}

func TestAdminReferences(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.user(t, domain.RoleSuperuser, "root@example.com", "root")

	resp := srv.do(t, formRequest(http.MethodPost, "/admin/priorities/", url.Values{"name": {"Critical"}, "level": {"5"}}), srv.session(t, admin))
	expectRedirect(t, resp, handlers.ReferencesURL)
	resp = srv.do(t, formRequest(http.MethodPost, "/admin/priorities/", url.Values{"name": {"Blocker"}, "level": {"5"}}), srv.session(t, admin))
	expectRedirect(t, resp, handlers.ReferencesURL)
	if got := flashes(t, resp); len(got) != 1 || got[0].Level != auth.FlashError {
		t.Fatalf("duplicate level flashes = %+v", got)
	}

	resp = srv.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/admin/", nil), srv.session(t, admin))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("admin dashboard status = %d", resp.StatusCode)
	}
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("ready status = %d", resp.StatusCode)
	}
	if resp.Header.Get(httptransport.RequestIDHeader) == "" {
		t.Fatal("response without request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(httptransport.RequestIDHeader, "abc-123")
	if got := srv.do(t, req).Header.Get(httptransport.RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
	resp = srv.do(t, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("unknown route status = %d", resp.StatusCode)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, resp, &body)
	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("error code = %q", body.Error.Code)
	}
}
