package models

import "time"

// Message sender types.
const (
	SenderClient     = "client"
	SenderTechnician = "technician"
	SenderAI         = "ai"
)

// AssistantName is the display name used for automated and system
// messages, matching what customers see in the chat.
const AssistantName = "A.I Assistant"

// Message is a single chat message belonging to a ticket. Messages are
// append-only: created once, persisted, broadcast, never mutated.
type Message struct {
	ID         string    `db:"id" json:"id"`
	TicketID   string    `db:"ticket_id" json:"ticket_id"`
	SenderType string    `db:"sender_type" json:"sender_type"`
	SenderName string    `db:"sender_name" json:"sender_name"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// IsValidSenderType reports whether t is a known sender type.
func IsValidSenderType(t string) bool {
	switch t {
	case SenderClient, SenderTechnician, SenderAI:
		return true
	}
	return false
}
