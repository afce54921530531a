package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/aidesk-io/aidesk/internal/models"
)

// Adapter is the participant-side relay client used identically by the
// customer and technician surfaces. It hides the connection lifecycle
// from its consumer and guarantees each distinct message id is
// delivered at most once per adapter instance.
type Adapter struct {
	url    string
	dialer *websocket.Dialer
	logger *log.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	joined    map[string]struct{}
	seen      map[string]map[string]struct{} // ticket id -> message ids delivered
	lifecycle map[string]map[string]struct{} // ticket id -> lifecycle events delivered

	onMessage      func(models.Message)
	onAssumed      func(models.TicketAssumedPayload)
	onResolved     func(string)
	onAutoResolved func(string)
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithAdapterLogger sets a custom logger.
func WithAdapterLogger(l *log.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) AdapterOption {
	return func(a *Adapter) { a.dialer = d }
}

// NewAdapter creates an adapter that will connect to the relay at url
// (a ws:// or wss:// endpoint).
func NewAdapter(url string, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		url:       url,
		dialer:    websocket.DefaultDialer,
		logger:    log.New(log.Writer(), "[RELAY-CLIENT] ", log.LstdFlags),
		joined:    make(map[string]struct{}),
		seen:      make(map[string]map[string]struct{}),
		lifecycle: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Connect establishes the underlying connection. It is idempotent:
// when already connected it returns immediately instead of opening a
// second connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		return nil
	}

	conn, _, err := a.dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	a.conn = conn
	a.connected = true
	go a.readLoop(conn)
	return nil
}

// JoinTicket asks the relay to add this connection to the ticket's
// room. Safe to call repeatedly; the hub treats repeated joins as a
// no-op.
func (a *Adapter) JoinTicket(ticketID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.connected {
		return fmt.Errorf("join ticket %s: not connected", ticketID)
	}

	env := models.Envelope{Event: models.EventJoinTicket, TicketID: ticketID}
	if err := a.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("join ticket %s: %w", ticketID, err)
	}
	a.joined[ticketID] = struct{}{}
	return nil
}

// Send publishes a persisted message into the ticket's room. The
// envelope carries the ticket id so receivers can filter.
func (a *Adapter) Send(ticketID string, msg models.Message) error {
	return a.publish(models.NewEnvelope(models.EventNewMessage, ticketID, msg))
}

// Publish sends an arbitrary lifecycle envelope into a room.
func (a *Adapter) Publish(env models.Envelope) error {
	return a.publish(env)
}

func (a *Adapter) publish(env models.Envelope) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.connected {
		return fmt.Errorf("publish %s: not connected", env.Event)
	}
	if err := a.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("publish %s: %w", env.Event, err)
	}
	return nil
}

// OnMessage registers the handler invoked once per distinct message id.
func (a *Adapter) OnMessage(fn func(models.Message)) {
	a.mu.Lock()
	a.onMessage = fn
	a.mu.Unlock()
}

// OnTicketAssumed registers the handler for ticket_assumed events.
func (a *Adapter) OnTicketAssumed(fn func(models.TicketAssumedPayload)) {
	a.mu.Lock()
	a.onAssumed = fn
	a.mu.Unlock()
}

// OnTicketResolved registers the handler for ticket_resolved events.
func (a *Adapter) OnTicketResolved(fn func(ticketID string)) {
	a.mu.Lock()
	a.onResolved = fn
	a.mu.Unlock()
}

// OnTicketAutoResolved registers the handler for ticket_auto_resolved
// events.
func (a *Adapter) OnTicketAutoResolved(fn func(ticketID string)) {
	a.mu.Lock()
	a.onAutoResolved = fn
	a.mu.Unlock()
}

// Disconnect tears the connection down and clears all adapter-local
// state (seen ids, room membership). Safe to call when not connected.
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.connected {
		return nil
	}

	err := a.conn.Close()
	a.conn = nil
	a.connected = false
	a.joined = make(map[string]struct{})
	a.seen = make(map[string]map[string]struct{})
	a.lifecycle = make(map[string]map[string]struct{})
	return err
}

// readLoop dispatches inbound envelopes until the connection drops.
// conn is captured so a reconnect cannot cross-deliver into a newer
// session's loop.
func (a *Adapter) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			a.mu.Lock()
			if a.conn == conn {
				a.connected = false
				a.conn = nil
			}
			a.mu.Unlock()
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		a.dispatch(env)
	}
}

func (a *Adapter) dispatch(env models.Envelope) {
	a.mu.Lock()

	// Events without a ticket id, or for a ticket this session has not
	// joined, are dropped silently.
	if env.TicketID == "" {
		a.mu.Unlock()
		return
	}
	if _, ok := a.joined[env.TicketID]; !ok {
		a.mu.Unlock()
		return
	}

	switch env.Event {
	case models.EventNewMessage:
		var msg models.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.ID == "" {
			a.mu.Unlock()
			return
		}
		ids, ok := a.seen[env.TicketID]
		if !ok {
			ids = make(map[string]struct{})
			a.seen[env.TicketID] = ids
		}
		if _, dup := ids[msg.ID]; dup {
			a.mu.Unlock()
			return
		}
		ids[msg.ID] = struct{}{}
		handler := a.onMessage
		a.mu.Unlock()
		if handler != nil {
			handler(msg)
		}

	case models.EventTicketAssumed:
		// Decode before marking delivered, so a malformed frame does not
		// burn the ticket's one delivery.
		var payload models.TicketAssumedPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			a.mu.Unlock()
			return
		}
		if !a.markLifecycle(env.TicketID, env.Event) {
			a.mu.Unlock()
			return
		}
		handler := a.onAssumed
		a.mu.Unlock()
		if handler != nil {
			handler(payload)
		}

	case models.EventTicketResolved:
		if !a.markLifecycle(env.TicketID, env.Event) {
			a.mu.Unlock()
			return
		}
		handler := a.onResolved
		a.mu.Unlock()
		if handler != nil {
			handler(env.TicketID)
		}

	case models.EventTicketAutoResolved:
		if !a.markLifecycle(env.TicketID, env.Event) {
			a.mu.Unlock()
			return
		}
		handler := a.onAutoResolved
		a.mu.Unlock()
		if handler != nil {
			handler(env.TicketID)
		}

	default:
		a.mu.Unlock()
	}
}

// markLifecycle records a one-shot lifecycle event. Reports false when
// the event was already delivered for this ticket, so reconnect replays
// and loopback copies surface at most once. Caller must hold a.mu.
func (a *Adapter) markLifecycle(ticketID, event string) bool {
	events, ok := a.lifecycle[ticketID]
	if !ok {
		events = make(map[string]struct{})
		a.lifecycle[ticketID] = events
	}
	if _, dup := events[event]; dup {
		return false
	}
	events[event] = struct{}{}
	return true
}
