package models

import "encoding/json"

// Relay event names. The relay routes envelopes by ticket id without
// interpreting their payloads; these names exist for the endpoints.
const (
	EventJoinTicket         = "join_ticket"
	EventNewMessage         = "new_message"
	EventTicketAssumed      = "ticket_assumed"
	EventTicketResolved     = "ticket_resolved"
	EventTicketAutoResolved = "ticket_auto_resolved"
)

// Envelope is the wire frame exchanged over a relay connection. TicketID
// is the routing key; Data is opaque to the relay and decoded only by
// the endpoints.
type Envelope struct {
	Event    string          `json:"event"`
	TicketID string          `json:"ticketId"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// TicketAssumedPayload announces that a technician took over a ticket.
type TicketAssumedPayload struct {
	TicketID       string `json:"ticketId"`
	TechnicianName string `json:"technicianName"`
}

// TicketResolvedPayload announces a manual or automatic close.
type TicketResolvedPayload struct {
	TicketID string `json:"ticketId"`
}

// NewEnvelope marshals payload into an Envelope. A payload that cannot
// be marshalled yields an envelope with empty data, which receivers drop.
func NewEnvelope(event, ticketID string, payload any) Envelope {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Envelope{Event: event, TicketID: ticketID, Data: data}
}
