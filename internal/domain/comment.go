package domain

import "time"

// TicketComment is an append-only note on a ticket.
type TicketComment struct {
	ID            int64
	TicketID      int64
	UserID        int64
	Content       string
	CreatedAt     time.Time
	IsFromChatbot bool
}

// TicketAttachment references an uploaded file bound to a ticket.
type TicketAttachment struct {
	ID           int64
	TicketID     int64
	UploadedByID int64
	FilePath     string
	FileName     string
	MimeType     string
	SizeBytes    int64
	UploadedAt   time.Time
}
