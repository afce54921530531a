package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidesk-io/aidesk/internal/models"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// newRelayServer starts a hub behind an httptest websocket endpoint and
// returns its ws:// URL.
func newRelayServer(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go NewClient(hub, conn).Run()
	}))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// rawConn is a bare websocket participant used to observe fan-out
// without adapter-side dedup.
type rawConn struct {
	conn *websocket.Conn

	mu       sync.Mutex
	received []models.Envelope
}

func dialRaw(t *testing.T, url string) *rawConn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	rc := &rawConn{conn: conn}
	go func() {
		for {
			var env models.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			rc.mu.Lock()
			rc.received = append(rc.received, env)
			rc.mu.Unlock()
		}
	}()
	return rc
}

func (rc *rawConn) join(t *testing.T, ticketID string) {
	t.Helper()
	require.NoError(t, rc.conn.WriteJSON(models.Envelope{Event: models.EventJoinTicket, TicketID: ticketID}))
}

func (rc *rawConn) publish(t *testing.T, env models.Envelope) {
	t.Helper()
	require.NoError(t, rc.conn.WriteJSON(env))
}

func (rc *rawConn) envelopes() []models.Envelope {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]models.Envelope, len(rc.received))
	copy(out, rc.received)
	return out
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestHubFanOut(t *testing.T) {
	_, url := newRelayServer(t)

	customer := dialRaw(t, url)
	technician := dialRaw(t, url)
	customer.join(t, "T1")
	technician.join(t, "T1")

	msg := models.Message{ID: "m1", TicketID: "T1", SenderType: models.SenderClient, SenderName: "Maria", Content: "olá"}
	customer.publish(t, models.NewEnvelope(models.EventNewMessage, "T1", msg))

	waitFor(t, func() bool { return len(technician.envelopes()) >= 1 })

	got := technician.envelopes()[0]
	assert.Equal(t, models.EventNewMessage, got.Event)
	assert.Equal(t, "T1", got.TicketID)
}

func TestHubRoomIsolation(t *testing.T) {
	_, url := newRelayServer(t)

	inRoomA := dialRaw(t, url)
	inRoomA2 := dialRaw(t, url)
	inRoomB := dialRaw(t, url)
	inRoomA.join(t, "A")
	inRoomA2.join(t, "A")
	inRoomB.join(t, "B")

	msg := models.Message{ID: "m1", TicketID: "A", SenderType: models.SenderClient, SenderName: "x", Content: "só para A"}
	inRoomA.publish(t, models.NewEnvelope(models.EventNewMessage, "A", msg))

	waitFor(t, func() bool { return len(inRoomA2.envelopes()) >= 1 })

	// Give any stray delivery time to land before asserting isolation.
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, inRoomB.envelopes(), "room B must not see room A traffic")
}

func TestHubIdempotentJoin(t *testing.T) {
	hub, url := newRelayServer(t)

	member := dialRaw(t, url)
	member.join(t, "T1")
	member.join(t, "T1")
	member.join(t, "T1")

	waitFor(t, func() bool { return hub.RoomSize("T1") == 1 })

	other := dialRaw(t, url)
	other.join(t, "T1")
	waitFor(t, func() bool { return hub.RoomSize("T1") == 2 })

	// A single publish must reach the double-joined member exactly once.
	msg := models.Message{ID: "m1", TicketID: "T1", SenderType: models.SenderClient, SenderName: "x", Content: "oi"}
	other.publish(t, models.NewEnvelope(models.EventNewMessage, "T1", msg))

	waitFor(t, func() bool { return len(member.envelopes()) >= 1 })
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, member.envelopes(), 1)
}

func TestHubLoopbackDelivery(t *testing.T) {
	// The hub includes the origin in fan-out; dedup is the adapter's
	// responsibility.
	_, url := newRelayServer(t)

	origin := dialRaw(t, url)
	origin.join(t, "T1")

	msg := models.Message{ID: "m1", TicketID: "T1", SenderType: models.SenderClient, SenderName: "x", Content: "eco"}
	origin.publish(t, models.NewEnvelope(models.EventNewMessage, "T1", msg))

	waitFor(t, func() bool { return len(origin.envelopes()) >= 1 })
}

func TestHubLeaveOnDisconnect(t *testing.T) {
	hub, url := newRelayServer(t)

	member := dialRaw(t, url)
	member.join(t, "T1")
	member.join(t, "T2")
	waitFor(t, func() bool { return hub.RoomSize("T1") == 1 && hub.RoomSize("T2") == 1 })

	member.conn.Close()
	waitFor(t, func() bool { return hub.RoomSize("T1") == 0 && hub.RoomSize("T2") == 0 })
}

func TestHubDropsFramesWithoutTicketID(t *testing.T) {
	hub, url := newRelayServer(t)

	member := dialRaw(t, url)
	member.join(t, "T1")
	waitFor(t, func() bool { return hub.RoomSize("T1") == 1 })

	// Neither a join nor a publish without a ticket id may do anything.
	member.publish(t, models.Envelope{Event: models.EventJoinTicket})
	member.publish(t, models.Envelope{Event: models.EventNewMessage})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, member.envelopes())
}
