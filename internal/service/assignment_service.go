package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// EscalationInput describes the changes an escalation applies. Nil fields
// leave the ticket's current value in place.
type EscalationInput struct {
	NewAgentID    *int64 `form:"new_agent"`
	NewPriorityID *int64 `form:"new_priority"`
	NewStatusID   *int64 `form:"new_status"`
	Reason        string `form:"reason"`
}

// Escalate snapshots the ticket's agent, priority and status, then applies
// the requested changes. Both writes share one transaction. The snapshot's
// new values are the ticket's values after the change.
func (s *TicketService) Escalate(ctx context.Context, actor *domain.User, ticketID string, input EscalationInput) (*domain.Ticket, *domain.TicketEscalation, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, nil, domain.ErrReasonRequired
	}

	var (
		ticket     *domain.Ticket
		escalation *domain.TicketEscalation
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		ticket, err = s.ticketFor(ctx, tx, actor, ticketID)
		if err != nil {
			return err
		}
		if err := s.checkEscalationTargets(ctx, tx, input); err != nil {
			return err
		}

		escalation = &domain.TicketEscalation{
			TicketID:         ticket.ID,
			EscalatedByID:    actor.ID,
			PreviousAgentID:  ticket.AgentID,
			NewAgentID:       pick(input.NewAgentID, ticket.AgentID),
			PreviousPriority: ticket.PriorityID,
			NewPriority:      pick(input.NewPriorityID, ticket.PriorityID),
			PreviousStatus:   ticket.StatusID,
			NewStatus:        pick(input.NewStatusID, ticket.StatusID),
			Reason:           reason,
		}
		if err := tx.Escalations().Create(ctx, escalation); err != nil {
			return fmt.Errorf("record escalation: %w", err)
		}

		statusChanged := !sameID(ticket.StatusID, escalation.NewStatus)
		ticket.AgentID = escalation.NewAgentID
		ticket.PriorityID = escalation.NewPriority
		ticket.StatusID = escalation.NewStatus
		if statusChanged && ticket.ResolvedAt == nil {
			resolved, err := s.isResolvedStatus(ctx, tx, ticket.StatusID)
			if err != nil {
				return err
			}
			if resolved {
				now := s.now()
				ticket.ResolvedAt = &now
			}
		}
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("ticket escalated",
		zap.String("ticket_id", ticket.TicketID),
		zap.Int64("escalated_by", actor.ID),
		zap.Int64("escalation_id", escalation.ID))
	s.publishEvent(ctx, events.New(events.EventTicketEscalated, ticket.TicketID, actor.ID, events.TicketEscalatedPayload{
		EscalationID: escalation.ID,
		NewAgentID:   escalation.NewAgentID,
		NewPriority:  escalation.NewPriority,
		NewStatus:    escalation.NewStatus,
		Reason:       escalation.Reason,
	}))
	return ticket, escalation, nil
}

// AssignTicket hands the ticket to agent, recorded as an escalation with a
// generated reason.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.User, ticketID string, agentID int64) (*domain.Ticket, error) {
	agent, err := s.store.Users().GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotAnAgentAssignee
		}
		return nil, err
	}
	if agent.Role != domain.RoleAgent {
		return nil, domain.ErrNotAnAgentAssignee
	}
	ticket, _, err := s.Escalate(ctx, actor, ticketID, EscalationInput{
		NewAgentID: &agent.ID,
		Reason:     fmt.Sprintf("Assigned to %s by %s", displayName(agent), displayName(actor)),
	})
	return ticket, err
}

func (s *TicketService) checkEscalationTargets(ctx context.Context, tx repository.Store, input EscalationInput) error {
	if input.NewAgentID != nil {
		agent, err := tx.Users().GetByID(ctx, *input.NewAgentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrNotAnAgentAssignee
			}
			return err
		}
		if agent.Role != domain.RoleAgent {
			return domain.ErrNotAnAgentAssignee
		}
	}
	if input.NewPriorityID != nil {
		if _, err := tx.References().GetPriority(ctx, *input.NewPriorityID); err != nil {
			return referenceErr(err)
		}
	}
	if input.NewStatusID != nil {
		if _, err := tx.References().GetStatus(ctx, *input.NewStatusID); err != nil {
			return referenceErr(err)
		}
	}
	return nil
}

func (s *TicketService) isResolvedStatus(ctx context.Context, tx repository.Store, statusID *int64) (bool, error) {
	if statusID == nil || s.resolvedStatus == "" {
		return false, nil
	}
	status, err := tx.References().GetStatus(ctx, *statusID)
	if err != nil {
		return false, referenceErr(err)
	}
	return strings.EqualFold(status.Name, s.resolvedStatus), nil
}

func referenceErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ErrReferenceNotFound
	}
	return err
}

func pick(next, current *int64) *int64 {
	if next != nil {
		v := *next
		return &v
	}
	return current
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
