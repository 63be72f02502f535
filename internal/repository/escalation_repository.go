package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EscalationRepository stores immutable escalation audit entries.
type EscalationRepository interface {
	Create(ctx context.Context, escalation *domain.TicketEscalation) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketEscalation, error)
}

type escalationRepository struct {
	db DBTX
}

// NewEscalationRepository builds repository.
func NewEscalationRepository(db DBTX) EscalationRepository {
	return &escalationRepository{db: db}
}

func (r *escalationRepository) Create(ctx context.Context, e *domain.TicketEscalation) error {
	const query = `
        INSERT INTO ticket_escalations (ticket_id, escalated_by_id, previous_agent_id, new_agent_id,
            previous_priority_id, new_priority_id, previous_status_id, new_status_id, reason, escalated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,COALESCE($10, NOW()))
        RETURNING id, escalated_at`
	var escalatedAt any
	if !e.EscalatedAt.IsZero() {
		escalatedAt = e.EscalatedAt
	}
	return r.db.QueryRow(ctx, query,
		e.TicketID,
		e.EscalatedByID,
		e.PreviousAgentID,
		e.NewAgentID,
		e.PreviousPriority,
		e.NewPriority,
		e.PreviousStatus,
		e.NewStatus,
		e.Reason,
		escalatedAt,
	).Scan(&e.ID, &e.EscalatedAt)
}

func (r *escalationRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketEscalation, error) {
	const query = `
        SELECT id, ticket_id, escalated_by_id, previous_agent_id, new_agent_id, previous_priority_id,
               new_priority_id, previous_status_id, new_status_id, reason, escalated_at
        FROM ticket_escalations WHERE ticket_id=$1 ORDER BY escalated_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEscalation
	for rows.Next() {
		var e domain.TicketEscalation
		if err := rows.Scan(
			&e.ID,
			&e.TicketID,
			&e.EscalatedByID,
			&e.PreviousAgentID,
			&e.NewAgentID,
			&e.PreviousPriority,
			&e.NewPriority,
			&e.PreviousStatus,
			&e.NewStatus,
			&e.Reason,
			&e.EscalatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
