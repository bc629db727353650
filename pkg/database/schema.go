package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements are idempotent and portable between PostgreSQL and SQLite.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS teachers_email_lower_idx ON teachers (lower(email))`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL REFERENCES teachers (id),
		subject_code TEXT NOT NULL,
		shift TEXT NOT NULL DEFAULT '',
		packet_code TEXT NOT NULL,
		total_exams INTEGER NOT NULL CHECK (total_exams > 0),
		due_date TEXT NOT NULL DEFAULT '',
		is_external BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL,
		date TEXT NOT NULL,
		year TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS assignments_subject_code_idx ON assignments (subject_code)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS assignments_packet_code_idx ON assignments (packet_code)`,
	`CREATE INDEX IF NOT EXISTS assignments_teacher_due_idx ON assignments (teacher_id, due_date)`,
	`CREATE TABLE IF NOT EXISTS code_pools (
		pool TEXT NOT NULL,
		position INTEGER NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (pool, position)
	)`,
	`CREATE TABLE IF NOT EXISTS changes (
		collection TEXT PRIMARY KEY,
		version BIGINT NOT NULL
	)`,
}

// EnsureSchema creates the tables and indexes used by the repositories.
func EnsureSchema(db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
