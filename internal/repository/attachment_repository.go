package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.TicketAttachment) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAttachment, error)
}

type attachmentRepository struct {
	db DBTX
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DBTX) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.TicketAttachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, uploaded_by_id, file_path, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, uploaded_at`
	return r.db.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.UploadedByID,
		attachment.FilePath,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
	).Scan(&attachment.ID, &attachment.UploadedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAttachment, error) {
	const query = `
        SELECT id, ticket_id, uploaded_by_id, file_path, file_name, mime_type, size_bytes, uploaded_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY uploaded_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAttachment
	for rows.Next() {
		var attachment domain.TicketAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.UploadedByID,
			&attachment.FilePath,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
