// Package database opens and manages the SQL connection used by the
// repositories. SQLite is the default; PostgreSQL and MySQL are
// supported through the same interface.
package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aidesk-io/aidesk/internal/config"
)

// Connect opens a database handle for the configured driver, verifies
// it with a ping, and applies per-driver connection settings.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver := normalizeDriver(cfg.Driver)
	dsn := cfg.DSN

	if driver == "sqlite3" && !strings.Contains(dsn, "?") {
		// Enforce foreign keys and allow concurrent readers.
		dsn = dsn + "?_foreign_keys=on&_journal_mode=WAL"
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite3" {
		// SQLite serializes writes; a single connection avoids
		// SQLITE_BUSY under concurrent writers.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	return db, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return "sqlite3"
	case "postgres", "postgresql":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	}
	return driver
}
