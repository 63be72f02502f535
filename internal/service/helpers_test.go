package service

import (
	"context"
	"sync"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/repository/memstore"
	"github.com/spec-kit/helpdesk/internal/storage"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

type testEnv struct {
	store        *memstore.Store
	signups      *memstore.SignupSessions
	files        *storage.LocalStore
	mediaRoot    string
	sender       *recordingSender
	accounts     *AccountService
	verification *VerificationService
	signup       *SignupService
	refs         *ReferenceService
	tickets      *TicketService
	defaults     domain.ReferenceDefaults
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	env := &testEnv{
		store:     memstore.New(),
		signups:   memstore.NewSignupSessions(),
		mediaRoot: t.TempDir(),
		sender:    &recordingSender{},
	}
	env.files = storage.NewLocalStore(env.mediaRoot)
	env.accounts = NewAccountService(AccountDependencies{UserRepo: env.store.Users(), BcryptCost: 4})
	env.verification = NewVerificationService(VerificationDependencies{
		UserRepo: env.store.Users(),
		Sender:   env.sender,
		SiteURL:  "http://localhost:8000/",
		SiteName: "Helpdesk",
	})
	env.signup = NewSignupService(SignupDependencies{
		SessionRepo:  env.signups,
		Accounts:     env.accounts,
		Verification: env.verification,
	})
	env.refs = NewReferenceService(env.store.References(), nil)
	defaults, err := env.refs.EnsureDefaults(ctx, "Medium", "Open")
	if err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	env.defaults = defaults
	env.tickets = NewTicketService(TicketDependencies{
		Store:          env.store,
		Files:          env.files,
		Defaults:       defaults,
		ResolvedStatus: "Resolved",
		PageSize:       10,
	})
	return env
}

// user creates an account of role; agents are marked verified and active.
func (e *testEnv) user(t *testing.T, role domain.Role, email, username string) *domain.User {
	t.Helper()
	ctx := context.Background()
	u, err := e.accounts.CreateAccount(ctx, AccountInput{
		Email:    email,
		Username: username,
		Name:     username,
		Password: "secret123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", email, err)
	}
	if role == domain.RoleAgent {
		u.IsVerified = true
		u.IsActive = true
		if err := e.store.Users().Update(ctx, u); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	return u
}

func (e *testEnv) priority(t *testing.T, name string) *domain.Priority {
	t.Helper()
	p, err := e.store.References().GetPriorityByName(context.Background(), name)
	if err != nil {
		t.Fatalf("GetPriorityByName(%s): %v", name, err)
	}
	return p
}

func (e *testEnv) status(t *testing.T, name string) *domain.Status {
	t.Helper()
	s, err := e.store.References().GetStatusByName(context.Background(), name)
	if err != nil {
		t.Fatalf("GetStatusByName(%s): %v", name, err)
	}
	return s
}
