// Package repository provides data access for tickets, messages,
// feedback and technician accounts. Each repository is defined as an
// interface with a SQL implementation and an in-memory implementation
// used in tests.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aidesk-io/aidesk/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a status update would move a
// ticket backward in its lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

// TicketRepository defines the interface for ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, clientName, clientEmail, problem string, lgpdAccepted bool) (*models.Ticket, error)
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	List(ctx context.Context, statuses []string) ([]*models.Ticket, error)
	UpdateStatus(ctx context.Context, id, status string, resolvedAt *time.Time) (*models.Ticket, error)
	AssignTechnician(ctx context.Context, id, technicianID string) error
}

// TicketSQLRepository implements TicketRepository on a SQL database.
type TicketSQLRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new SQL-backed ticket repository.
func NewTicketRepository(db *sqlx.DB) *TicketSQLRepository {
	return &TicketSQLRepository{db: db}
}

// Create inserts a new ticket in status open.
func (r *TicketSQLRepository) Create(ctx context.Context, clientName, clientEmail, problem string, lgpdAccepted bool) (*models.Ticket, error) {
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

	query := r.db.Rebind(`
		INSERT INTO tickets (id, client_name, client_email, problem_description, status, lgpd_accepted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		ticket.ID, ticket.ClientName, ticket.ClientEmail, ticket.ProblemDescription,
		ticket.Status, ticket.LGPDAccepted, ticket.CreatedAt, ticket.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	return ticket, nil
}

// GetByID retrieves a single ticket.
func (r *TicketSQLRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	query := r.db.Rebind(`SELECT * FROM tickets WHERE id = ?`)
	if err := r.db.GetContext(ctx, &ticket, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return &ticket, nil
}

// List returns tickets, optionally filtered by status, newest first.
func (r *TicketSQLRepository) List(ctx context.Context, statuses []string) ([]*models.Ticket, error) {
	tickets := []*models.Ticket{}

	if len(statuses) == 0 {
		query := `SELECT * FROM tickets ORDER BY created_at DESC`
		if err := r.db.SelectContext(ctx, &tickets, query); err != nil {
			return nil, fmt.Errorf("list tickets: %w", err)
		}
		return tickets, nil
	}

	normalized := make([]string, len(statuses))
	for i, s := range statuses {
		normalized[i] = models.NormalizeStatus(s)
	}

	query, args, err := sqlx.In(`SELECT * FROM tickets WHERE status IN (?) ORDER BY created_at DESC`, normalized)
	if err != nil {
		return nil, fmt.Errorf("build ticket filter: %w", err)
	}
	if err := r.db.SelectContext(ctx, &tickets, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list tickets by status: %w", err)
	}
	return tickets, nil
}

// UpdateStatus moves a ticket forward in its lifecycle. Backward or
// repeated transitions are rejected with ErrInvalidTransition, which
// makes concurrent writers converge on the furthest status.
func (r *TicketSQLRepository) UpdateStatus(ctx context.Context, id, status string, resolvedAt *time.Time) (*models.Ticket, error) {
	status = models.NormalizeStatus(status)
	if !models.IsValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q", status)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(current.Status, status) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE tickets SET status = ?, updated_at = ?, resolved_at = ? WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, status, now, resolvedAt, id, current.Status)
	if err != nil {
		return nil, fmt.Errorf("update ticket status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Lost the race to a concurrent writer; surface the fresher row.
		return r.GetByID(ctx, id)
	}

	current.Status = status
	current.UpdatedAt = now
	current.ResolvedAt = resolvedAt
	return current, nil
}

// AssignTechnician records which technician took the ticket.
func (r *TicketSQLRepository) AssignTechnician(ctx context.Context, id, technicianID string) error {
	query := r.db.Rebind(`UPDATE tickets SET assigned_technician_id = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, technicianID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("assign technician: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
