package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aidesk-io/aidesk/internal/models"
)

// TechnicianRepository defines the interface for technician accounts.
type TechnicianRepository interface {
	Create(ctx context.Context, username, passwordHash, name, email string) (*models.Technician, error)
	GetByUsername(ctx context.Context, username string) (*models.Technician, error)
	GetByID(ctx context.Context, id string) (*models.Technician, error)
}

// TechnicianSQLRepository implements TechnicianRepository on a SQL database.
type TechnicianSQLRepository struct {
	db *sqlx.DB
}

// NewTechnicianRepository creates a new SQL-backed technician repository.
func NewTechnicianRepository(db *sqlx.DB) *TechnicianSQLRepository {
	return &TechnicianSQLRepository{db: db}
}

// Create inserts a new technician account.
func (r *TechnicianSQLRepository) Create(ctx context.Context, username, passwordHash, name, email string) (*models.Technician, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}

	tech := &models.Technician{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Name:         name,
		Email:        email,
		CreatedAt:    time.Now().UTC(),
	}

	query := r.db.Rebind(`
		INSERT INTO technicians (id, username, password_hash, name, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		tech.ID, tech.Username, tech.PasswordHash, tech.Name, tech.Email, tech.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert technician: %w", err)
	}

	return tech, nil
}

// GetByUsername retrieves a technician by login name.
func (r *TechnicianSQLRepository) GetByUsername(ctx context.Context, username string) (*models.Technician, error) {
	var tech models.Technician
	query := r.db.Rebind(`SELECT * FROM technicians WHERE username = ?`)
	if err := r.db.GetContext(ctx, &tech, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get technician %s: %w", username, err)
	}
	return &tech, nil
}

// GetByID retrieves a technician by id.
func (r *TechnicianSQLRepository) GetByID(ctx context.Context, id string) (*models.Technician, error) {
	var tech models.Technician
	query := r.db.Rebind(`SELECT * FROM technicians WHERE id = ?`)
	if err := r.db.GetContext(ctx, &tech, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get technician by id: %w", err)
	}
	return &tech, nil
}
