package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aidesk-io/aidesk/internal/models"
)

// MessageRepository defines the interface for message persistence.
// Messages are append-only; there is no update or delete.
type MessageRepository interface {
	Insert(ctx context.Context, ticketID, senderType, senderName, content string) (*models.Message, error)
	ListByTicket(ctx context.Context, ticketID string) ([]*models.Message, error)
}

// MessageSQLRepository implements MessageRepository on a SQL database.
type MessageSQLRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new SQL-backed message repository.
func NewMessageRepository(db *sqlx.DB) *MessageSQLRepository {
	return &MessageSQLRepository{db: db}
}

// Insert persists a new message and returns it with its assigned id.
func (r *MessageSQLRepository) Insert(ctx context.Context, ticketID, senderType, senderName, content string) (*models.Message, error) {
	if !models.IsValidSenderType(senderType) {
		return nil, fmt.Errorf("unknown sender type %q", senderType)
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("message content is required")
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		SenderType: senderType,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	query := r.db.Rebind(`
		INSERT INTO messages (id, ticket_id, sender_type, sender_name, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.TicketID, msg.SenderType, msg.SenderName, msg.Content, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

// ListByTicket returns all messages for a ticket in creation order.
func (r *MessageSQLRepository) ListByTicket(ctx context.Context, ticketID string) ([]*models.Message, error) {
	messages := []*models.Message{}
	query := r.db.Rebind(`SELECT * FROM messages WHERE ticket_id = ? ORDER BY created_at, id`)
	if err := r.db.SelectContext(ctx, &messages, query, ticketID); err != nil {
		return nil, fmt.Errorf("list messages for ticket %s: %w", ticketID, err)
	}
	return messages, nil
}
