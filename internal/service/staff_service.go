package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// StaffService answers directory questions for staff pages.
type StaffService struct {
	store repository.Store
}

// NewStaffService builds the service.
func NewStaffService(store repository.Store) *StaffService {
	return &StaffService{store: store}
}

// Person is the public view of an account used in form choices.
type Person struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func people(users []domain.User) []Person {
	out := make([]Person, 0, len(users))
	for _, u := range users {
		out = append(out, Person{ID: u.ID, Name: u.Name, Email: u.Email, Username: u.Username})
	}
	return out
}

// ListCustomers returns every customer account.
func (s *StaffService) ListCustomers(ctx context.Context) ([]Person, error) {
	users, err := s.store.Users().ListByRole(ctx, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return people(users), nil
}

// ListAgents returns every agent account.
func (s *StaffService) ListAgents(ctx context.Context) ([]Person, error) {
	users, err := s.store.Users().ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	return people(users), nil
}

// AdminOverview summarises accounts and tickets for the admin dashboard.
type AdminOverview struct {
	Customers        int `json:"customers"`
	Agents           int `json:"agents"`
	UnverifiedAgents int `json:"unverified_agents"`
	Superusers       int `json:"superusers"`
	Tickets          int `json:"tickets"`
}

// AdminOverview counts accounts by role and all tickets.
func (s *StaffService) AdminOverview(ctx context.Context) (*AdminOverview, error) {
	var overview AdminOverview
	customers, err := s.store.Users().ListByRole(ctx, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	agents, err := s.store.Users().ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	superusers, err := s.store.Users().ListByRole(ctx, domain.RoleSuperuser)
	if err != nil {
		return nil, err
	}
	overview.Customers = len(customers)
	overview.Agents = len(agents)
	overview.Superusers = len(superusers)
	for _, agent := range agents {
		if !agent.IsVerified {
			overview.UnverifiedAgents++
		}
	}
	if overview.Tickets, err = s.store.Tickets().Count(ctx, repository.TicketFilter{}); err != nil {
		return nil, err
	}
	return &overview, nil
}
