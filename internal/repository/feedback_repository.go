package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aidesk-io/aidesk/internal/models"
)

// FeedbackRepository defines the interface for post-resolution ratings.
type FeedbackRepository interface {
	Insert(ctx context.Context, ticketID string, rating int, comment string) (*models.Feedback, error)
	AverageRating(ctx context.Context) (float64, int, error)
}

// FeedbackSQLRepository implements FeedbackRepository on a SQL database.
type FeedbackSQLRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new SQL-backed feedback repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackSQLRepository {
	return &FeedbackSQLRepository{db: db}
}

// Insert stores a rating for a resolved ticket.
func (r *FeedbackSQLRepository) Insert(ctx context.Context, ticketID string, rating int, comment string) (*models.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}

	fb := &models.Feedback{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}

	query := r.db.Rebind(`
		INSERT INTO feedbacks (id, ticket_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, fb.ID, fb.TicketID, fb.Rating, fb.Comment, fb.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}

	return fb, nil
}

// AverageRating returns the mean rating and the number of feedback rows.
func (r *FeedbackSQLRepository) AverageRating(ctx context.Context) (float64, int, error) {
	var row struct {
		Avg   *float64 `db:"avg_rating"`
		Count int      `db:"n"`
	}
	query := `SELECT AVG(rating) AS avg_rating, COUNT(*) AS n FROM feedbacks`
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	if row.Avg == nil {
		return 0, 0, nil
	}
	return *row.Avg, row.Count, nil
}
