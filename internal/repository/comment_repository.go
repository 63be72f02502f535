package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CommentRepository stores ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.TicketComment) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketComment, error)
}

type commentRepository struct {
	db DBTX
}

// NewCommentRepository builds repository.
func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.TicketComment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, user_id, content, is_from_chatbot, created_at)
        VALUES ($1,$2,$3,$4,COALESCE($5, NOW()))
        RETURNING id, created_at`
	var createdAt any
	if !comment.CreatedAt.IsZero() {
		createdAt = comment.CreatedAt
	}
	return r.db.QueryRow(ctx, query,
		comment.TicketID,
		comment.UserID,
		comment.Content,
		comment.IsFromChatbot,
		createdAt,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketComment, error) {
	const query = `
        SELECT id, ticket_id, user_id, content, created_at, is_from_chatbot
        FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketComment
	for rows.Next() {
		var c domain.TicketComment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.UserID, &c.Content, &c.CreatedAt, &c.IsFromChatbot); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
