package gateway

import (
	"context"

	"github.com/kursadbilgin/push-engine/internal/domain"
)

// TicketStatus is the per-message outcome reported by the push gateway.
type TicketStatus string

const (
	TicketOK    TicketStatus = "ok"
	TicketError TicketStatus = "error"
)

// Message is one outbound push message.
type Message struct {
	To       string            `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

// Ticket is the gateway receipt for one message. Tickets are returned in the
// same order as the submitted messages.
type Ticket struct {
	Status  TicketStatus `json:"status"`
	ID      string       `json:"id,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Gateway is the outbound push delivery port. Send submits one chunk of
// messages; chunk sizing is the caller's responsibility.
type Gateway interface {
	Send(ctx context.Context, messages []Message) ([]Ticket, error)
}

// PriorityValue maps the domain priority onto the gateway wire value.
func PriorityValue(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "high"
	case domain.PriorityNormal:
		return "normal"
	default:
		return "default"
	}
}
