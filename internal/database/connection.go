package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/example/overseer/internal/config"
)

// Connect opens the database described by cfg and creates missing tables.
// Drivers: sqlite3 (cgo), sqlite (pure Go) and postgres.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if isSQLite(cfg.Driver) && cfg.DSN != ":memory:" && !strings.HasPrefix(cfg.DSN, "file:") {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if isSQLite(cfg.Driver) {
		// SQLite doesn't support multiple writers, and each connection to
		// :memory: would get its own empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewMemory opens an in-memory pure-Go SQLite database for tests.
func NewMemory() (*sqlx.DB, error) {
	return Connect(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
}

func isSQLite(driver string) bool {
	return driver == "sqlite3" || driver == "sqlite"
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id                   %s,
				telegram_id          BIGINT,
				name                 TEXT NOT NULL DEFAULT '',
				notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				notification_hour    INTEGER NOT NULL DEFAULT 9
			)`},
		{"subjects", `
			CREATE TABLE IF NOT EXISTS subjects (
				id          %s,
				owner_id    BIGINT NOT NULL,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				ue_code     TEXT NOT NULL DEFAULT ''
			)`},
		{"tasks", `
			CREATE TABLE IF NOT EXISTS tasks (
				id               %s,
				owner_id         BIGINT NOT NULL,
				title            TEXT NOT NULL,
				status           TEXT NOT NULL DEFAULT 'a_faire',
				priority         TEXT NOT NULL DEFAULT 'normale',
				deadline         TEXT,
				duration_minutes INTEGER,
				project_id       BIGINT
			)`},
		{"events", `
			CREATE TABLE IF NOT EXISTS events (
				id       %s,
				owner_id BIGINT NOT NULL,
				title    TEXT NOT NULL,
				kind     TEXT NOT NULL DEFAULT 'fixe',
				start_at TEXT NOT NULL,
				end_at   TEXT NOT NULL,
				task_id  BIGINT
			)`},
		{"study_plans", `
			CREATE TABLE IF NOT EXISTS study_plans (
				id            %s,
				owner_id      BIGINT NOT NULL,
				subject_id    BIGINT NOT NULL,
				title         TEXT NOT NULL,
				exam_date     TEXT,
				total_minutes INTEGER
			)`},
		{"study_sessions", `
			CREATE TABLE IF NOT EXISTS study_sessions (
				id               %s,
				owner_id         BIGINT NOT NULL,
				subject_id       BIGINT NOT NULL,
				plan_id          BIGINT NOT NULL,
				kind             TEXT NOT NULL,
				topic            TEXT,
				status           TEXT NOT NULL DEFAULT 'planned',
				scheduled_for    TEXT NOT NULL,
				duration_minutes INTEGER NOT NULL,
				completed_at     TEXT,
				difficulty       INTEGER,
				notes            TEXT
			)`},
		{"cards", `
			CREATE TABLE IF NOT EXISTS cards (
				id            %s,
				owner_id      BIGINT NOT NULL,
				subject_id    BIGINT NOT NULL,
				front         TEXT NOT NULL,
				back          TEXT NOT NULL,
				due_at        TEXT NOT NULL,
				interval_days INTEGER NOT NULL DEFAULT 1,
				ease          DOUBLE PRECISION NOT NULL DEFAULT 2.5,
				streak        INTEGER NOT NULL DEFAULT 0,
				last_score    INTEGER,
				version       BIGINT NOT NULL DEFAULT 0
			)`},
	}
	for _, t := range tables {
		if _, err := db.Exec(fmt.Sprintf(t.ddl, serial)); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}

	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_telegram ON users(telegram_id)",
		"CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_events_owner_start ON events(owner_id, start_at)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_owner_due ON study_sessions(owner_id, status, scheduled_for)",
		"CREATE INDEX IF NOT EXISTS idx_cards_owner_due ON cards(owner_id, due_at)",
	}
	for _, ddl := range indexes {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
