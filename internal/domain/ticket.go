package domain

import (
	"strconv"
	"strings"
	"time"
)

// Channel tags where a ticket originated.
type Channel string

const (
	ChannelForm  Channel = "FORM"
	ChannelChat  Channel = "CHAT"
	ChannelOther Channel = "OTHER"
)

// Channels lists the accepted channels in display order.
var Channels = []Channel{ChannelForm, ChannelChat, ChannelOther}

// ParseChannel accepts a channel in any letter case.
func ParseChannel(s string) (Channel, bool) {
	c := Channel(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Channels {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// TicketIDBase offsets the row sequence in human readable ticket ids.
const TicketIDBase = 1000

// FormatTicketID renders the ticket id for row sequence seq.
func FormatTicketID(seq int64) string {
	return "TKT" + strconv.FormatInt(TicketIDBase+seq, 10)
}

// Ticket is the unit of support work.
type Ticket struct {
	ID          int64
	TicketID    string
	Title       string
	Description string
	CustomerID  int64
	AgentID     *int64
	CategoryID  *int64
	PriorityID  *int64
	StatusID    *int64
	Channel     Channel
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	IsActive    bool
}
