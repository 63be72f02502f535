package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func TestSeederCreatesTickets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seeder := NewSeeder(env.store, env.accounts, env.refs, 42, nil)

	result, err := seeder.Seed(ctx, 20, "Medium", "Open")
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if result.Tickets != 20 || result.Users != 10 {
		t.Fatalf("result = %+v", result)
	}
	n, err := env.store.Tickets().Count(ctx, repository.TicketFilter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 20 {
		t.Fatalf("ticket count = %d", n)
	}
	if _, err := seeder.Seed(ctx, 0, "Medium", "Open"); err == nil {
		t.Fatal("Seed(0) succeeded")
	}
	if _, err := seeder.Seed(ctx, 3, "Medium", "Open"); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
}

func TestSeederIsDeterministicForSeed(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	run := func() (*domain.Ticket, *domain.User) {
		env := newTestEnv(t)
		seeder := NewSeeder(env.store, env.accounts, env.refs, 7, nil)
		seeder.now = func() time.Time { return fixed }
		if _, err := seeder.Seed(ctx, 2, "Medium", "Open"); err != nil {
			t.Fatalf("Seed: %v", err)
		}
		ticket, err := env.store.Tickets().GetByTicketID(ctx, "TKT1001")
		if err != nil {
			t.Fatalf("GetByTicketID: %v", err)
		}
		customer, err := env.store.Users().GetByID(ctx, ticket.CustomerID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		return ticket, customer
	}

	t1, c1 := run()
	t2, c2 := run()
	if t1.Title == "" || t1.Description == "" {
		t.Fatalf("empty generated text: %+v", t1)
	}
	if t1.Title != t2.Title || t1.Description != t2.Description || !t1.CreatedAt.Equal(t2.CreatedAt) {
		t.Fatalf("tickets differ: %q vs %q", t1.Title, t2.Title)
	}
	if c1.Email != c2.Email || c1.Name != c2.Name {
		t.Fatalf("customers differ: %s/%s vs %s/%s", c1.Email, c1.Name, c2.Email, c2.Name)
	}
}
