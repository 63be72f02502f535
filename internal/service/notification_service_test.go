package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
)

type recordingSink struct {
	events []events.Event
}

func (r *recordingSink) Handle(_ context.Context, event events.Event) error {
	r.events = append(r.events, event)
	return nil
}

func TestNotificationServiceForwardsTicketEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dispatcher := events.NewBus(nil)
	sink := &recordingSink{}
	NewNotificationService(dispatcher, sink, zap.NewNop()).RegisterHandlers()
	env.tickets.dispatcher = dispatcher

	customer := env.user(t, domain.RoleCustomer, "c@example.com", "cust")
	ticket, err := env.tickets.CreateTicket(ctx, customer, TicketInput{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := env.tickets.AddComment(ctx, customer, ticket.TicketID, CommentInput{Content: "any update?"}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if len(sink.events) != 2 {
		t.Fatalf("forwarded %d events, want 2", len(sink.events))
	}
	if sink.events[0].Type != events.EventTicketCreated || sink.events[1].Type != events.EventCommentAdded {
		t.Fatalf("event types = %s, %s", sink.events[0].Type, sink.events[1].Type)
	}
}
