// Package relay implements the real-time message fan-out between
// customers and technicians. The Hub groups live connections into rooms
// keyed by ticket id and rebroadcasts every published envelope to the
// room's members. Payloads are opaque to the hub: routing uses only the
// envelope's ticket id.
//
// The hub holds no durable state. A restart drops all rooms and
// participants re-join through their adapters.
package relay

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/aidesk-io/aidesk/internal/metrics"
	"github.com/aidesk-io/aidesk/internal/models"
)

// Hub routes envelopes between connections joined to the same ticket
// room. Membership mutations and fan-out are short and non-blocking;
// a single mutex is enough.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *log.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: log.New(log.Writer(), "[RELAY] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Join adds a connection to a ticket room. Joining a room the
// connection is already in is a no-op; there is no capacity limit and
// the hub does not check the ticket exists.
func (h *Hub) Join(c *Client, ticketID string) {
	if ticketID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[ticketID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[ticketID] = room
	}
	if _, joined := room[c]; joined {
		return
	}
	room[c] = struct{}{}
	c.trackRoom(ticketID)
	h.logger.Printf("connection %s joined ticket %s (%d members)", c.id, ticketID, len(room))
}

// Publish fans an envelope out to every member of the ticket's room,
// the origin included; receivers deduplicate. Delivery is best-effort:
// members with a full send buffer or a closed connection are skipped.
func (h *Hub) Publish(origin *Client, ticketID string, env models.Envelope) {
	if ticketID == "" {
		return
	}

	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Printf("drop unmarshalable envelope for ticket %s: %v", ticketID, err)
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[ticketID]))
	for c := range h.rooms[ticketID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	metrics.RelayEvents.WithLabelValues(env.Event).Inc()

	originID := "server"
	if origin != nil {
		originID = origin.id
	}
	for _, c := range members {
		if !c.trySend(payload) {
			metrics.RelayDropped.Inc()
			h.logger.Printf("dropped %s from %s to slow member %s", env.Event, originID, c.id)
		}
	}
}

// Broadcast publishes a server-originated envelope to the envelope's
// ticket room. It exists so the hub can stand in wherever a publisher
// is expected.
func (h *Hub) Broadcast(env models.Envelope) {
	h.Publish(nil, env.TicketID, env)
}

// Leave removes a connection from every room it belongs to. Remaining
// members are not notified. Empty rooms are deleted.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ticketID := range c.joinedRooms() {
		if room, ok := h.rooms[ticketID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, ticketID)
			}
		}
	}
	c.clearRooms()
}

// RoomSize reports the member count of a ticket room.
func (h *Hub) RoomSize(ticketID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ticketID])
}
