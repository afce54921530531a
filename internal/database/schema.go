package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema statements use portable SQL; TEXT timestamps keep the schema
// identical across sqlite, postgres and mysql.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		client_name TEXT NOT NULL,
		client_email TEXT NOT NULL DEFAULT '',
		problem_description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		assigned_technician_id TEXT,
		lgpd_accepted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		ticket_id TEXT NOT NULL REFERENCES tickets(id),
		sender_type TEXT NOT NULL,
		sender_name TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feedbacks (
		id TEXT PRIMARY KEY,
		ticket_id TEXT NOT NULL REFERENCES tickets(id),
		rating INTEGER NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS technicians (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_ticket ON messages (ticket_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets (status)`,
}

// Migrate creates the schema if it does not exist. Statements are
// idempotent so Migrate is safe to run on every start.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
