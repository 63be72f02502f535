package domain

import "time"

// TicketEscalation is an immutable audit entry of an agent, priority or status change.
type TicketEscalation struct {
	ID               int64
	TicketID         int64
	EscalatedByID    int64
	PreviousAgentID  *int64
	NewAgentID       *int64
	PreviousPriority *int64
	NewPriority      *int64
	PreviousStatus   *int64
	NewStatus        *int64
	Reason           string
	EscalatedAt      time.Time
}
