package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketEscalated EventType = "ticket_escalated"
	EventCommentAdded    EventType = "comment_added"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, ticketID string, actorID int64, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title      string `json:"title"`
	CustomerID int64  `json:"customer_id"`
	AgentID    *int64 `json:"agent_id,omitempty"`
	Channel    string `json:"channel"`
	PriorityID *int64 `json:"priority_id,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	EscalationID int64  `json:"escalation_id"`
	NewAgentID   *int64 `json:"new_agent_id,omitempty"`
	NewPriority  *int64 `json:"new_priority_id,omitempty"`
	NewStatus    *int64 `json:"new_status_id,omitempty"`
	Reason       string `json:"reason"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   int64  `json:"comment_id"`
	AuthorID    int64  `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}
