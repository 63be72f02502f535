package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Seeder fills a store with random tickets for local development.
type Seeder struct {
	store    repository.Store
	accounts *AccountService
	refs     *ReferenceService
	fake     *gofakeit.Faker
	now      func() time.Time
	logger   *zap.Logger
}

// NewSeeder builds a seeder. The same seed yields the same names and text;
// a zero seed uses the current time.
func NewSeeder(store repository.Store, accounts *AccountService, refs *ReferenceService, seed int64, logger *zap.Logger) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		store:    store,
		accounts: accounts,
		refs:     refs,
		fake:     gofakeit.New(uint64(seed)),
		now:      time.Now,
		logger:   logger,
	}
}

// SeedResult counts the rows a seed run created.
type SeedResult struct {
	Users       int
	Tickets     int
	Comments    int
	Escalations int
}

// Seed creates count tickets spread over max(5, count/2) new accounts, each
// with up to three comments and an occasional escalation.
func (s *Seeder) Seed(ctx context.Context, count int, priorityName, statusName string) (*SeedResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("seed count must be positive, got %d", count)
	}
	if _, err := s.refs.EnsureDefaults(ctx, priorityName, statusName); err != nil {
		return nil, err
	}
	catalog, err := s.refs.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	var result SeedResult
	var users []domain.User
	var agents []domain.User
	batch := s.fake.Uint32()
	userCount := count / 2
	if userCount < 5 {
		userCount = 5
	}
	for i := 0; i < userCount; i++ {
		role := domain.RoleCustomer
		if i%3 == 2 {
			role = domain.RoleAgent
		}
		username := fmt.Sprintf("%s_%x%d", strings.ToLower(s.fake.Username()), batch&0xffff, i)
		user, err := s.accounts.CreateAccount(ctx, AccountInput{
			Email:    username + "@" + s.fake.DomainName(),
			Username: username,
			Name:     s.fake.Name(),
			Password: "password123",
			Role:     role,
		})
		if err != nil {
			return nil, fmt.Errorf("seed user: %w", err)
		}
		if role == domain.RoleAgent {
			user.IsVerified = true
			user.IsActive = true
			if err := s.store.Users().Update(ctx, user); err != nil {
				return nil, err
			}
			agents = append(agents, *user)
		}
		users = append(users, *user)
		result.Users++
	}

	for i := 0; i < count; i++ {
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			comments, escalated, err := s.seedTicket(ctx, tx, catalog, users, agents)
			result.Comments += comments
			if escalated {
				result.Escalations++
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("seed ticket: %w", err)
		}
		result.Tickets++
	}
	s.logger.Info("seed complete",
		zap.Int("users", result.Users),
		zap.Int("tickets", result.Tickets),
		zap.Int("comments", result.Comments),
		zap.Int("escalations", result.Escalations))
	return &result, nil
}

func (s *Seeder) seedTicket(ctx context.Context, tx repository.Store, catalog *Catalog, users, agents []domain.User) (int, bool, error) {
	now := s.now()
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	createdAt := s.between(yearStart, now)

	customer := users[s.fake.IntN(len(users))]
	ticket := &domain.Ticket{
		Title:       strings.TrimSuffix(s.fake.Sentence(6), "."),
		Description: s.fake.Paragraph(1, 4, 12, " "),
		CustomerID:  customer.ID,
		Channel:     domain.Channels[s.fake.IntN(2)],
		CreatedAt:   createdAt,
		IsActive:    s.fake.Float64() <= 0.8 || s.fake.IntN(2) == 0,
	}
	if len(agents) > 0 && s.fake.Float64() > 0.3 {
		id := agents[s.fake.IntN(len(agents))].ID
		ticket.AgentID = &id
	}
	if len(catalog.Categories) > 0 {
		ticket.CategoryID = &catalog.Categories[s.fake.IntN(len(catalog.Categories))].ID
	}
	ticket.PriorityID = &catalog.Priorities[s.fake.IntN(len(catalog.Priorities))].ID
	ticket.StatusID = &catalog.Statuses[s.fake.IntN(len(catalog.Statuses))].ID
	if err := tx.Tickets().Create(ctx, ticket); err != nil {
		return 0, false, err
	}

	comments := s.fake.IntN(4)
	for i := 0; i < comments; i++ {
		comment := &domain.TicketComment{
			TicketID:      ticket.ID,
			UserID:        users[s.fake.IntN(len(users))].ID,
			Content:       s.fake.Sentence(15),
			CreatedAt:     s.between(createdAt, now),
			IsFromChatbot: s.fake.IntN(2) == 0,
		}
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return i, false, err
		}
	}

	if s.fake.Float64() <= 0.7 || len(agents) == 0 {
		return comments, false, nil
	}
	escalation := &domain.TicketEscalation{
		TicketID:         ticket.ID,
		EscalatedByID:    agents[s.fake.IntN(len(agents))].ID,
		PreviousAgentID:  ticket.AgentID,
		NewAgentID:       ticket.AgentID,
		PreviousPriority: ticket.PriorityID,
		NewPriority:      &catalog.Priorities[s.fake.IntN(len(catalog.Priorities))].ID,
		PreviousStatus:   ticket.StatusID,
		NewStatus:        &catalog.Statuses[s.fake.IntN(len(catalog.Statuses))].ID,
		Reason:           s.fake.Sentence(12),
		EscalatedAt:      s.between(createdAt, now),
	}
	if s.fake.Float64() > 0.5 {
		id := agents[s.fake.IntN(len(agents))].ID
		escalation.NewAgentID = &id
	}
	if err := tx.Escalations().Create(ctx, escalation); err != nil {
		return comments, false, err
	}
	ticket.AgentID = escalation.NewAgentID
	ticket.PriorityID = escalation.NewPriority
	ticket.StatusID = escalation.NewStatus
	if err := tx.Tickets().Update(ctx, ticket); err != nil {
		return comments, false, err
	}
	return comments, true, nil
}

func (s *Seeder) between(from, to time.Time) time.Time {
	if !to.After(from) {
		return from
	}
	return s.fake.DateRange(from, to)
}
