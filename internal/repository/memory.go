package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aidesk-io/aidesk/internal/models"
)

// MemoryTicketRepository is an in-memory TicketRepository for tests.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*models.Ticket
}

// NewMemoryTicketRepository creates an empty in-memory ticket repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]*models.Ticket)}
}

func (r *MemoryTicketRepository) Create(_ context.Context, clientName, clientEmail, problem string, lgpdAccepted bool) (*models.Ticket, error) {
	if strings.TrimSpace(clientName) == "" {
		return nil, errors.New("client name is required")
	}

	now := time.Now().UTC()
	ticket := &models.Ticket{
		ID:                 uuid.NewString(),
		ClientName:         clientName,
		ClientEmail:        clientEmail,
		ProblemDescription: problem,
		Status:             models.StatusOpen,
		LGPDAccepted:       lgpdAccepted,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	r.mu.Lock()
	r.tickets[ticket.ID] = ticket
	r.mu.Unlock()

	copied := *ticket
	return &copied, nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*models.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (r *MemoryTicketRepository) List(_ context.Context, statuses []string) ([]*models.Ticket, error) {
	want := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		want[models.NormalizeStatus(s)] = true
	}

	r.mu.RLock()
	out := []*models.Ticket{}
	for _, t := range r.tickets {
		if len(want) > 0 && !want[t.Status] {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryTicketRepository) UpdateStatus(_ context.Context, id, status string, resolvedAt *time.Time) (*models.Ticket, error) {
	status = models.NormalizeStatus(status)
	if !models.IsValidStatus(status) {
		return nil, errors.New("unknown status " + status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !models.CanTransition(ticket.Status, status) {
		return nil, ErrInvalidTransition
	}

	ticket.Status = status
	ticket.UpdatedAt = time.Now().UTC()
	ticket.ResolvedAt = resolvedAt

	copied := *ticket
	return &copied, nil
}

func (r *MemoryTicketRepository) AssignTechnician(_ context.Context, id, technicianID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return ErrNotFound
	}
	ticket.AssignedTechnicianID = &technicianID
	ticket.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryMessageRepository is an in-memory MessageRepository for tests.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string][]*models.Message
	seq      int
}

// NewMemoryMessageRepository creates an empty in-memory message repository.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[string][]*models.Message)}
}

func (r *MemoryMessageRepository) Insert(_ context.Context, ticketID, senderType, senderName, content string) (*models.Message, error) {
	if !models.IsValidSenderType(senderType) {
		return nil, errors.New("unknown sender type " + senderType)
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("message content is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	msg := &models.Message{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		SenderType: senderType,
		SenderName: senderName,
		Content:    content,
		// Nanosecond offset keeps creation order stable even when
		// several inserts land within one clock tick.
		CreatedAt: time.Now().UTC().Add(time.Duration(r.seq) * time.Nanosecond),
	}
	r.messages[ticketID] = append(r.messages[ticketID], msg)

	copied := *msg
	return &copied, nil
}

func (r *MemoryMessageRepository) ListByTicket(_ context.Context, ticketID string) ([]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Message, 0, len(r.messages[ticketID]))
	for _, m := range r.messages[ticketID] {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

// MemoryFeedbackRepository is an in-memory FeedbackRepository for tests.
type MemoryFeedbackRepository struct {
	mu        sync.RWMutex
	feedbacks []*models.Feedback
}

// NewMemoryFeedbackRepository creates an empty in-memory feedback repository.
func NewMemoryFeedbackRepository() *MemoryFeedbackRepository {
	return &MemoryFeedbackRepository{}
}

func (r *MemoryFeedbackRepository) Insert(_ context.Context, ticketID string, rating int, comment string) (*models.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.New("rating must be between 1 and 5")
	}

	fb := &models.Feedback{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.feedbacks = append(r.feedbacks, fb)
	r.mu.Unlock()

	copied := *fb
	return &copied, nil
}

func (r *MemoryFeedbackRepository) AverageRating(_ context.Context) (float64, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.feedbacks) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, fb := range r.feedbacks {
		sum += fb.Rating
	}
	return float64(sum) / float64(len(r.feedbacks)), len(r.feedbacks), nil
}

// MemoryTechnicianRepository is an in-memory TechnicianRepository for tests.
type MemoryTechnicianRepository struct {
	mu    sync.RWMutex
	techs map[string]*models.Technician
}

// NewMemoryTechnicianRepository creates an empty in-memory technician repository.
func NewMemoryTechnicianRepository() *MemoryTechnicianRepository {
	return &MemoryTechnicianRepository{techs: make(map[string]*models.Technician)}
}

func (r *MemoryTechnicianRepository) Create(_ context.Context, username, passwordHash, name, email string) (*models.Technician, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.techs {
		if t.Username == username {
			return nil, errors.New("username already exists")
		}
	}

	tech := &models.Technician{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Name:         name,
		Email:        email,
		CreatedAt:    time.Now().UTC(),
	}
	r.techs[tech.ID] = tech

	copied := *tech
	return &copied, nil
}

func (r *MemoryTechnicianRepository) GetByUsername(_ context.Context, username string) (*models.Technician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.techs {
		if t.Username == username {
			copied := *t
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryTechnicianRepository) GetByID(_ context.Context, id string) (*models.Technician, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tech, ok := r.techs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *tech
	return &copied, nil
}
