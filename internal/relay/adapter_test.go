package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidesk-io/aidesk/internal/models"
)

func newConnectedAdapter(t *testing.T, url string) *Adapter {
	t.Helper()

	a := NewAdapter(url)
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(func() { a.Disconnect() })
	return a
}

// collector records messages delivered to an adapter handler.
type collector struct {
	mu       sync.Mutex
	messages []models.Message
	assumed  []models.TicketAssumedPayload
	resolved []string
}

func (c *collector) attach(a *Adapter) {
	a.OnMessage(func(m models.Message) {
		c.mu.Lock()
		c.messages = append(c.messages, m)
		c.mu.Unlock()
	})
	a.OnTicketAssumed(func(p models.TicketAssumedPayload) {
		c.mu.Lock()
		c.assumed = append(c.assumed, p)
		c.mu.Unlock()
	})
	a.OnTicketResolved(func(id string) {
		c.mu.Lock()
		c.resolved = append(c.resolved, id)
		c.mu.Unlock()
	})
}

func (c *collector) messageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *collector) assumedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.assumed)
}

func TestAdapterConnectIdempotent(t *testing.T) {
	hub, url := newRelayServer(t)

	a := newConnectedAdapter(t, url)
	// Repeated connects must not open extra connections.
	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, a.Connect(context.Background()))

	require.NoError(t, a.JoinTicket("T1"))
	waitFor(t, func() bool { return hub.RoomSize("T1") == 1 })
}

func TestAdapterSendReceive(t *testing.T) {
	_, url := newRelayServer(t)

	sender := newConnectedAdapter(t, url)
	receiver := newConnectedAdapter(t, url)
	require.NoError(t, sender.JoinTicket("T1"))
	require.NoError(t, receiver.JoinTicket("T1"))

	var got collector
	got.attach(receiver)

	msg := models.Message{ID: "m1", TicketID: "T1", SenderType: models.SenderClient, SenderName: "Maria", Content: "olá", CreatedAt: time.Now().UTC()}
	require.NoError(t, sender.Send("T1", msg))

	waitFor(t, func() bool { return got.messageCount() == 1 })
	assert.Equal(t, "m1", got.messages[0].ID)
	assert.Equal(t, "olá", got.messages[0].Content)
}

func TestAdapterDedupesRedelivery(t *testing.T) {
	_, url := newRelayServer(t)

	sender := newConnectedAdapter(t, url)
	receiver := newConnectedAdapter(t, url)
	require.NoError(t, sender.JoinTicket("T1"))
	require.NoError(t, receiver.JoinTicket("T1"))

	var got collector
	got.attach(receiver)

	msg := models.Message{ID: "m1", TicketID: "T1", SenderType: models.SenderClient, SenderName: "x", Content: "repetida"}
	for i := 0; i < 5; i++ {
		require.NoError(t, sender.Send("T1", msg))
	}

	waitFor(t, func() bool { return got.messageCount() >= 1 })
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, got.messageCount(), "same message id must surface exactly once")
}

func TestAdapterDropsLoopback(t *testing.T) {
	_, url := newRelayServer(t)

	a := newConnectedAdapter(t, url)
	require.NoError(t, a.JoinTicket("T1"))

	var got collector
	got.attach(a)

	// The hub echoes the publish back to the origin. The adapter's own
	// send marks the id as seen only when it is redelivered, so the
	// loopback copy is surfaced once and only once.
	msg := models.Message{ID: "m1", TicketID: "T1", SenderType: models.SenderClient, SenderName: "x", Content: "eco"}
	require.NoError(t, a.Send("T1", msg))
	require.NoError(t, a.Send("T1", msg))

	waitFor(t, func() bool { return got.messageCount() >= 1 })
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, got.messageCount())
}

func TestAdapterIgnoresOtherTickets(t *testing.T) {
	_, url := newRelayServer(t)

	sender := newConnectedAdapter(t, url)
	receiver := newConnectedAdapter(t, url)
	require.NoError(t, sender.JoinTicket("T1"))
	require.NoError(t, sender.JoinTicket("T2"))
	require.NoError(t, receiver.JoinTicket("T1"))

	var got collector
	got.attach(receiver)

	require.NoError(t, sender.Send("T2", models.Message{ID: "m-other", TicketID: "T2", SenderType: models.SenderClient, SenderName: "x", Content: "outro"}))
	require.NoError(t, sender.Send("T1", models.Message{ID: "m-mine", TicketID: "T1", SenderType: models.SenderClient, SenderName: "x", Content: "meu"}))

	waitFor(t, func() bool { return got.messageCount() >= 1 })
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, got.messageCount())
	assert.Equal(t, "m-mine", got.messages[0].ID)
}

func TestAdapterLifecycleEventsOnce(t *testing.T) {
	_, url := newRelayServer(t)

	technician := newConnectedAdapter(t, url)
	customer := newConnectedAdapter(t, url)
	require.NoError(t, technician.JoinTicket("T1"))
	require.NoError(t, customer.JoinTicket("T1"))

	var got collector
	got.attach(customer)

	payload := models.TicketAssumedPayload{TicketID: "T1", TechnicianName: "Carlos"}
	env := models.NewEnvelope(models.EventTicketAssumed, "T1", payload)

	// A reconnecting technician page may publish the same announcement
	// twice; the customer must see it once.
	require.NoError(t, technician.Publish(env))
	require.NoError(t, technician.Publish(env))

	waitFor(t, func() bool { return got.assumedCount() >= 1 })
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, got.assumedCount())
	assert.Equal(t, "Carlos", got.assumed[0].TechnicianName)
}

func TestAdapterMalformedAssumedFrameDoesNotBlockDelivery(t *testing.T) {
	_, url := newRelayServer(t)

	technician := newConnectedAdapter(t, url)
	customer := newConnectedAdapter(t, url)
	require.NoError(t, technician.JoinTicket("T1"))
	require.NoError(t, customer.JoinTicket("T1"))

	var got collector
	got.attach(customer)

	// A frame whose payload cannot be decoded is dropped without
	// counting as the ticket's one delivery.
	bad := models.Envelope{Event: models.EventTicketAssumed, TicketID: "T1", Data: json.RawMessage(`"corrompido"`)}
	require.NoError(t, technician.Publish(bad))

	good := models.NewEnvelope(models.EventTicketAssumed, "T1", models.TicketAssumedPayload{TicketID: "T1", TechnicianName: "Carlos"})
	require.NoError(t, technician.Publish(good))

	waitFor(t, func() bool { return got.assumedCount() >= 1 })
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, got.assumedCount())
	assert.Equal(t, "Carlos", got.assumed[0].TechnicianName)
}

func TestAdapterDisconnectSafe(t *testing.T) {
	_, url := newRelayServer(t)

	a := NewAdapter(url)
	// Disconnect before any connect must be a no-op.
	require.NoError(t, a.Disconnect())

	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, a.JoinTicket("T1"))
	require.NoError(t, a.Disconnect())
	require.NoError(t, a.Disconnect())

	// Operations after disconnect report a transport error rather than
	// panicking.
	assert.Error(t, a.JoinTicket("T1"))
	assert.Error(t, a.Send("T1", models.Message{ID: "m1"}))
}

func TestAdapterReconnectAndRejoin(t *testing.T) {
	hub, url := newRelayServer(t)

	a := NewAdapter(url)
	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, a.JoinTicket("T1"))
	waitFor(t, func() bool { return hub.RoomSize("T1") == 1 })

	require.NoError(t, a.Disconnect())
	waitFor(t, func() bool { return hub.RoomSize("T1") == 0 })

	// Server restarts drop all rooms; the adapter re-joins after its
	// next connect.
	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, a.JoinTicket("T1"))
	waitFor(t, func() bool { return hub.RoomSize("T1") == 1 })
}
