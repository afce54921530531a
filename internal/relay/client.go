package relay

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aidesk-io/aidesk/internal/metrics"
	"github.com/aidesk-io/aidesk/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// Client is one live relay connection, owned by the hub side. Inbound
// frames are either join requests (handled here) or publishes (fanned
// out by the hub).
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.Mutex
	rooms map[string]struct{}

	closeOnce sync.Once
	logger    *log.Logger
}

// NewClient wraps an accepted websocket connection. The caller must
// invoke Run to start the read and write pumps.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		rooms:  make(map[string]struct{}),
		logger: hub.logger,
	}
}

// Run services the connection until it drops, then detaches it from all
// rooms. Blocks until the read pump exits.
func (c *Client) Run() {
	metrics.RelayConnections.Inc()
	defer metrics.RelayConnections.Dec()

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Printf("connection %s read error: %v", c.id, err)
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// Malformed frames are dropped, not fatal.
			continue
		}
		if env.TicketID == "" {
			continue
		}

		switch env.Event {
		case models.EventJoinTicket:
			c.hub.Join(c, env.TicketID)
		default:
			c.hub.Publish(c, env.TicketID, env)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues a payload without blocking. Reports false when the
// buffer is full or the connection is closed.
func (c *Client) trySend(payload []byte) bool {
	defer func() {
		// Sending on a closed channel means the client was torn down
		// mid fan-out; the member simply misses the event.
		recover()
	}()

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) trackRoom(ticketID string) {
	c.mu.Lock()
	c.rooms[ticketID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) joinedRooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

func (c *Client) clearRooms() {
	c.mu.Lock()
	c.rooms = make(map[string]struct{})
	c.mu.Unlock()
}
