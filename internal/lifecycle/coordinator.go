// Package lifecycle drives a ticket through open -> in_progress ->
// resolved. The Coordinator applies the assistant interaction contract
// to inbound customer messages, performs technician take-over and
// close, writes every transition through to the ticket store, and
// announces transitions over the relay so every participant's view
// converges without polling.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/aidesk-io/aidesk/internal/assistant"
	"github.com/aidesk-io/aidesk/internal/metrics"
	"github.com/aidesk-io/aidesk/internal/models"
	"github.com/aidesk-io/aidesk/internal/repository"
)

// ErrTicketResolved is returned when an operation targets a ticket that
// already reached its terminal state.
var ErrTicketResolved = errors.New("ticket is resolved")

// ErrNotInProgress is returned when a technician tries to resolve a
// ticket that is not being handled.
var ErrNotInProgress = errors.New("ticket is not in progress")

// FeedbackInvite is the system message appended when a ticket is
// closed, inviting the customer to rate the service.
const FeedbackInvite = "✅ Seu chamado foi encerrado com sucesso! Por favor, avalie o atendimento atribuindo uma nota de 1 a 5 ⭐ e, se desejar, deixe um comentário. 💬"

// Publisher pushes envelopes into the relay. The hub satisfies this on
// the server; a connected Adapter satisfies it on a participant.
type Publisher interface {
	Broadcast(env models.Envelope)
}

// Coordinator owns the lifecycle decisions for tickets. One instance
// serves all tickets; per-ticket cached status is the only local state.
type Coordinator struct {
	tickets   repository.TicketRepository
	messages  repository.MessageRepository
	responder assistant.Responder
	publisher Publisher
	logger    *log.Logger

	mu     sync.RWMutex
	status map[string]string // ticket id -> last known status
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator creates a coordinator wired to its collaborators.
func NewCoordinator(tickets repository.TicketRepository, messages repository.MessageRepository, responder assistant.Responder, publisher Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		tickets:   tickets,
		messages:  messages,
		responder: responder,
		publisher: publisher,
		logger:    log.New(log.Writer(), "[LIFECYCLE] ", log.LstdFlags),
		status:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenTicket creates a ticket and persists the assistant's welcome
// message.
func (c *Coordinator) OpenTicket(ctx context.Context, clientName, clientEmail, problem string, lgpdAccepted bool) (*models.Ticket, *models.Message, error) {
	ticket, err := c.tickets.Create(ctx, clientName, clientEmail, problem, lgpdAccepted)
	if err != nil {
		return nil, nil, err
	}
	c.cacheStatus(ticket.ID, ticket.Status)

	welcome := fmt.Sprintf(
		"Olá %s! 👋\nSou o assistente virtual da A.I Desk. Descreva brevemente o problema que está enfrentando.",
		clientName)
	msg, err := c.appendMessage(ctx, ticket.ID, models.SenderAI, models.AssistantName, welcome)
	if err != nil {
		// The ticket exists; a missing welcome message is not fatal.
		c.logger.Printf("welcome message for ticket %s failed: %v", ticket.ID, err)
		return ticket, nil, nil
	}
	return ticket, msg, nil
}

// HandleClientMessage runs the assistant interaction contract for one
// inbound customer message and returns every message persisted during
// the exchange, the customer's own first.
//
// A store failure persisting the customer's message is returned to the
// caller so the UI can show the send as failed. Responder failures
// never surface; they arrive as a forced-escalation response.
func (c *Coordinator) HandleClientMessage(ctx context.Context, ticketID, senderName, text string) ([]*models.Message, error) {
	ticket, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == models.StatusResolved {
		return nil, ErrTicketResolved
	}
	c.cacheStatus(ticket.ID, ticket.Status)

	clientMsg, err := c.appendMessage(ctx, ticketID, models.SenderClient, senderName, text)
	if err != nil {
		return nil, err
	}
	out := []*models.Message{clientMsg}

	// A technician owns the conversation; no automated reply.
	if ticket.Status != models.StatusOpen {
		return out, nil
	}

	resp := c.responder.GetResponse(ctx, ticketID, text)

	switch {
	case resp.AutoResolved:
		metrics.AssistantResponses.WithLabelValues("auto_resolved").Inc()

		if reply, err := c.appendMessage(ctx, ticketID, models.SenderAI, models.AssistantName, resp.Text); err == nil {
			out = append(out, reply)
		}
		now := time.Now().UTC()
		if _, err := c.transition(ctx, ticketID, models.StatusResolved, &now); err != nil {
			return out, err
		}
		if invite, err := c.appendMessage(ctx, ticketID, models.SenderAI, models.AssistantName, FeedbackInvite); err == nil {
			out = append(out, invite)
		}
		c.broadcast(models.NewEnvelope(models.EventTicketAutoResolved, ticketID, models.TicketResolvedPayload{TicketID: ticketID}))

	case resp.RequiresHuman:
		metrics.AssistantResponses.WithLabelValues("escalated").Inc()

		if reply, err := c.appendMessage(ctx, ticketID, models.SenderAI, models.AssistantName, resp.Text); err == nil {
			out = append(out, reply)
		}
		if _, err := c.transition(ctx, ticketID, models.StatusInProgress, nil); err != nil {
			return out, err
		}

	default:
		metrics.AssistantResponses.WithLabelValues("replied").Inc()

		if reply, err := c.appendMessage(ctx, ticketID, models.SenderAI, models.AssistantName, resp.Text); err == nil {
			out = append(out, reply)
		}
	}

	return out, nil
}

// HandleTechnicianMessage persists and broadcasts a technician's chat
// message. Messages to resolved tickets are rejected.
func (c *Coordinator) HandleTechnicianMessage(ctx context.Context, ticketID, senderName, text string) (*models.Message, error) {
	ticket, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == models.StatusResolved {
		return nil, ErrTicketResolved
	}
	return c.appendMessage(ctx, ticketID, models.SenderTechnician, senderName, text)
}

// Assume marks an open ticket as being handled by a technician and
// announces it. Assuming a ticket already in progress is a no-op so a
// technician reopening the chat screen does not re-trigger anything.
func (c *Coordinator) Assume(ctx context.Context, ticketID, technicianID, technicianName string) (*models.Ticket, error) {
	ticket, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	switch ticket.Status {
	case models.StatusResolved:
		return nil, ErrTicketResolved
	case models.StatusInProgress:
		return ticket, nil
	}

	updated, err := c.transition(ctx, ticketID, models.StatusInProgress, nil)
	if err != nil {
		return nil, err
	}
	if err := c.tickets.AssignTechnician(ctx, ticketID, technicianID); err != nil {
		c.logger.Printf("assign technician on ticket %s failed: %v", ticketID, err)
	}

	c.broadcast(models.NewEnvelope(models.EventTicketAssumed, ticketID, models.TicketAssumedPayload{
		TicketID:       ticketID,
		TechnicianName: technicianName,
	}))
	return updated, nil
}

// Resolve closes an in-progress ticket: resolution timestamp, feedback
// invite message, ticket_resolved announcement.
func (c *Coordinator) Resolve(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	switch ticket.Status {
	case models.StatusResolved:
		return nil, ErrTicketResolved
	case models.StatusOpen:
		return nil, ErrNotInProgress
	}

	now := time.Now().UTC()
	updated, err := c.transition(ctx, ticketID, models.StatusResolved, &now)
	if err != nil {
		return nil, err
	}

	if _, err := c.appendMessage(ctx, ticketID, models.SenderAI, models.AssistantName, FeedbackInvite); err != nil {
		c.logger.Printf("feedback invite on ticket %s failed: %v", ticketID, err)
	}
	c.broadcast(models.NewEnvelope(models.EventTicketResolved, ticketID, models.TicketResolvedPayload{TicketID: ticketID}))
	return updated, nil
}

// AcknowledgeFeedback appends the assistant's thank-you message after a
// customer submits a rating.
func (c *Coordinator) AcknowledgeFeedback(ctx context.Context, ticketID string) (*models.Message, error) {
	return c.appendMessage(ctx, ticketID, models.SenderAI, models.AssistantName,
		"Obrigado pela sua avaliação! 🙏 Ela nos ajuda a melhorar o atendimento.")
}

// Apply folds a relay event into the local status view. Duplicate and
// out-of-order events are no-ops; the view only moves forward.
func (c *Coordinator) Apply(env models.Envelope) {
	switch env.Event {
	case models.EventTicketAssumed:
		c.advanceStatus(env.TicketID, models.StatusInProgress)
	case models.EventTicketResolved, models.EventTicketAutoResolved:
		c.advanceStatus(env.TicketID, models.StatusResolved)
	}
}

// StatusView returns the locally cached status for a ticket, or the
// empty string when the ticket has not been observed.
func (c *Coordinator) StatusView(ticketID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status[ticketID]
}

// ReconcileTickets merges a polled ticket list into push-derived state
// by id-union. For tickets known locally the further status wins, so a
// stale poll can never walk a ticket backward.
func (c *Coordinator) ReconcileTickets(polled []*models.Ticket) []*models.Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*models.Ticket, 0, len(polled))
	for _, t := range polled {
		copied := *t
		if local, ok := c.status[t.ID]; ok && !models.StatusAtLeast(t.Status, local) {
			copied.Status = local
		} else {
			c.status[t.ID] = models.NormalizeStatus(t.Status)
		}
		out = append(out, &copied)
	}
	return out
}

// ReconcileMessages unions two message lists by id and returns them in
// creation order.
func ReconcileMessages(pushed, polled []*models.Message) []*models.Message {
	byID := make(map[string]*models.Message, len(pushed)+len(polled))
	for _, m := range pushed {
		byID[m.ID] = m
	}
	for _, m := range polled {
		if _, ok := byID[m.ID]; !ok {
			byID[m.ID] = m
		}
	}

	out := make([]*models.Message, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// appendMessage persists a message and fans it out.
func (c *Coordinator) appendMessage(ctx context.Context, ticketID, senderType, senderName, content string) (*models.Message, error) {
	msg, err := c.messages.Insert(ctx, ticketID, senderType, senderName, content)
	if err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	c.broadcast(models.NewEnvelope(models.EventNewMessage, ticketID, msg))
	return msg, nil
}

// transition writes a status change through to the store and records it
// locally. A concurrent writer landing the same transition first is
// fine: the store's monotonicity check makes the laggard a no-op.
func (c *Coordinator) transition(ctx context.Context, ticketID, status string, resolvedAt *time.Time) (*models.Ticket, error) {
	updated, err := c.tickets.UpdateStatus(ctx, ticketID, status, resolvedAt)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return c.tickets.GetByID(ctx, ticketID)
		}
		return nil, fmt.Errorf("update ticket %s to %s: %w", ticketID, status, err)
	}

	metrics.TicketTransitions.WithLabelValues(status).Inc()
	c.advanceStatus(ticketID, status)
	return updated, nil
}

func (c *Coordinator) broadcast(env models.Envelope) {
	if c.publisher != nil {
		c.publisher.Broadcast(env)
	}
}

func (c *Coordinator) cacheStatus(ticketID, status string) {
	c.advanceStatus(ticketID, status)
}

// advanceStatus moves the cached view forward, never backward.
func (c *Coordinator) advanceStatus(ticketID, status string) {
	status = models.NormalizeStatus(status)
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.status[ticketID]; ok && models.StatusAtLeast(current, status) {
		return
	}
	c.status[ticketID] = status
}
