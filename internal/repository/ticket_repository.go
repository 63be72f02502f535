package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter is a conjunction of optional ticket predicates; nil fields are ignored.
type TicketFilter struct {
	CustomerID  *int64
	AgentID     *int64
	PriorityID  *int64
	StatusID    *int64
	CategoryID  *int64
	Channel     *domain.Channel
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Matches evaluates the filter against a ticket in memory.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.CustomerID != nil && t.CustomerID != *f.CustomerID {
		return false
	}
	if f.AgentID != nil && !int64PtrEq(t.AgentID, *f.AgentID) {
		return false
	}
	if f.PriorityID != nil && !int64PtrEq(t.PriorityID, *f.PriorityID) {
		return false
	}
	if f.StatusID != nil && !int64PtrEq(t.StatusID, *f.StatusID) {
		return false
	}
	if f.CategoryID != nil && !int64PtrEq(t.CategoryID, *f.CategoryID) {
		return false
	}
	if f.Channel != nil && t.Channel != *f.Channel {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func int64PtrEq(p *int64, v int64) bool {
	return p != nil && *p == v
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create inserts the ticket and fills ID, TicketID and timestamps.
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByTicketID(ctx context.Context, ticketID string) (*domain.Ticket, error)
	// List returns matching tickets ordered by created_at descending.
	List(ctx context.Context, filter TicketFilter, limit, offset int) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
}

const ticketColumns = `id, ticket_id, title, description, customer_id, agent_id, category_id, priority_id,
               status_id, channel, created_at, updated_at, resolved_at, is_active`

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

// Create draws the row id from the table sequence inside the statement so the
// derived ticket_id is unique even with concurrent writers.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        WITH seq AS (SELECT nextval(pg_get_serial_sequence('tickets', 'id')) AS id)
        INSERT INTO tickets (id, ticket_id, title, description, customer_id, agent_id, category_id,
                             priority_id, status_id, channel, created_at, is_active)
        SELECT seq.id, 'TKT' || ($11::bigint + seq.id)::text, $1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()), $10
        FROM seq
        RETURNING id, ticket_id, created_at, updated_at`

	var createdAt *time.Time
	if !ticket.CreatedAt.IsZero() {
		createdAt = &ticket.CreatedAt
	}
	return r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.CustomerID,
		ticket.AgentID,
		ticket.CategoryID,
		ticket.PriorityID,
		ticket.StatusID,
		ticket.Channel,
		createdAt,
		ticket.IsActive,
		int64(domain.TicketIDBase),
	).Scan(&ticket.ID, &ticket.TicketID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// Update never touches ticket_id.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, agent_id=$3, category_id=$4, priority_id=$5,
            status_id=$6, channel=$7, resolved_at=$8, is_active=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.AgentID,
		ticket.CategoryID,
		ticket.PriorityID,
		ticket.StatusID,
		ticket.Channel,
		ticket.ResolvedAt,
		ticket.IsActive,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return notFound(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id=$1`, ticketID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter, limit, offset int) ([]domain.Ticket, error) {
	where, args := buildTicketWhere(filter)
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := buildTicketWhere(filter)
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&count)
	return count, err
}

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.CustomerID != nil {
		add("customer_id=$%d", *filter.CustomerID)
	}
	if filter.AgentID != nil {
		add("agent_id=$%d", *filter.AgentID)
	}
	if filter.PriorityID != nil {
		add("priority_id=$%d", *filter.PriorityID)
	}
	if filter.StatusID != nil {
		add("status_id=$%d", *filter.StatusID)
	}
	if filter.CategoryID != nil {
		add("category_id=$%d", *filter.CategoryID)
	}
	if filter.Channel != nil {
		add("channel=$%d", string(*filter.Channel))
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", *filter.CreatedTo)
	}
	return strings.Join(clauses, " AND "), args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketID,
		&ticket.Title,
		&ticket.Description,
		&ticket.CustomerID,
		&ticket.AgentID,
		&ticket.CategoryID,
		&ticket.PriorityID,
		&ticket.StatusID,
		&ticket.Channel,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.IsActive,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
