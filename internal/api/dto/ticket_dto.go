package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketSummary is a ticket row in listings.
type TicketSummary struct {
	ID         int64          `json:"id"`
	TicketID   string         `json:"ticket_id"`
	Title      string         `json:"title"`
	CustomerID int64          `json:"customer_id"`
	AgentID    *int64         `json:"agent_id"`
	CategoryID *int64         `json:"category_id"`
	PriorityID *int64         `json:"priority_id"`
	StatusID   *int64         `json:"status_id"`
	Channel    domain.Channel `json:"channel"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ResolvedAt *time.Time     `json:"resolved_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string               `json:"description"`
	Comments    []CommentResponse    `json:"comments"`
	Attachments []AttachmentResponse `json:"attachments"`
	Escalations []EscalationResponse `json:"escalations"`
}

// CommentResponse represents a ticket comment.
type CommentResponse struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Content       string    `json:"content"`
	IsFromChatbot bool      `json:"is_from_chatbot"`
	CreatedAt     time.Time `json:"created_at"`
}

// AttachmentResponse represents an uploaded file.
type AttachmentResponse struct {
	ID           int64     `json:"id"`
	FileName     string    `json:"file_name"`
	URL          string    `json:"url"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedByID int64     `json:"uploaded_by_id"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// EscalationResponse represents an escalation snapshot.
type EscalationResponse struct {
	ID               int64     `json:"id"`
	EscalatedByID    int64     `json:"escalated_by_id"`
	PreviousAgentID  *int64    `json:"previous_agent_id"`
	NewAgentID       *int64    `json:"new_agent_id"`
	PreviousPriority *int64    `json:"previous_priority_id"`
	NewPriority      *int64    `json:"new_priority_id"`
	PreviousStatus   *int64    `json:"previous_status_id"`
	NewStatus        *int64    `json:"new_status_id"`
	Reason           string    `json:"reason"`
	EscalatedAt      time.Time `json:"escalated_at"`
}

// NewTicketSummary converts a ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:         t.ID,
		TicketID:   t.TicketID,
		Title:      t.Title,
		CustomerID: t.CustomerID,
		AgentID:    t.AgentID,
		CategoryID: t.CategoryID,
		PriorityID: t.PriorityID,
		StatusID:   t.StatusID,
		Channel:    t.Channel,
		IsActive:   t.IsActive,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		ResolvedAt: t.ResolvedAt,
	}
}

// NewTicketSummaries converts a page of tickets.
func NewTicketSummaries(tickets []domain.Ticket) []TicketSummary {
	out := make([]TicketSummary, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketSummary(&tickets[i]))
	}
	return out
}

// NewTicketDetail converts a ticket with its activity. mediaURL prefixes
// attachment paths.
func NewTicketDetail(t *domain.Ticket, comments []domain.TicketComment, attachments []domain.TicketAttachment, escalations []domain.TicketEscalation, mediaURL string) TicketDetailResponse {
	detail := TicketDetailResponse{
		TicketSummary: NewTicketSummary(t),
		Description:   t.Description,
		Comments:      make([]CommentResponse, 0, len(comments)),
		Attachments:   make([]AttachmentResponse, 0, len(attachments)),
		Escalations:   make([]EscalationResponse, 0, len(escalations)),
	}
	for _, c := range comments {
		detail.Comments = append(detail.Comments, CommentResponse{
			ID:            c.ID,
			UserID:        c.UserID,
			Content:       c.Content,
			IsFromChatbot: c.IsFromChatbot,
			CreatedAt:     c.CreatedAt,
		})
	}
	for _, a := range attachments {
		detail.Attachments = append(detail.Attachments, AttachmentResponse{
			ID:           a.ID,
			FileName:     a.FileName,
			URL:          strings.TrimRight(mediaURL, "/") + "/" + a.FilePath,
			MimeType:     a.MimeType,
			SizeBytes:    a.SizeBytes,
			UploadedByID: a.UploadedByID,
			UploadedAt:   a.UploadedAt,
		})
	}
	for _, e := range escalations {
		detail.Escalations = append(detail.Escalations, NewEscalationResponse(&e))
	}
	return detail
}

// NewEscalationResponse converts an escalation.
func NewEscalationResponse(e *domain.TicketEscalation) EscalationResponse {
	return EscalationResponse{
		ID:               e.ID,
		EscalatedByID:    e.EscalatedByID,
		PreviousAgentID:  e.PreviousAgentID,
		NewAgentID:       e.NewAgentID,
		PreviousPriority: e.PreviousPriority,
		NewPriority:      e.NewPriority,
		PreviousStatus:   e.PreviousStatus,
		NewStatus:        e.NewStatus,
		Reason:           e.Reason,
		EscalatedAt:      e.EscalatedAt,
	}
}

// ParseID reads an optional positive id from a form value. Blank yields
// nil; ok is false when the value is present but malformed.
func ParseID(raw string) (id *int64, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, false
	}
	return &v, true
}
