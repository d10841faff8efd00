package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schemaVersion = 1

var schema = []string{
	`CREATE TABLE IF NOT EXISTS subjects (
		id                INTEGER PRIMARY KEY,
		suggestion_type   TEXT NOT NULL,
		characters        TEXT,
		slug              TEXT,
		one_meaning       TEXT NOT NULL DEFAULT '',
		meaning_rich_text TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS subject_search_keys (
		subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		search_key TEXT NOT NULL,
		PRIMARY KEY (subject_id, search_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subject_search_keys_key ON subject_search_keys(search_key)`,
	`CREATE TABLE IF NOT EXISTS properties (
		name  TEXT PRIMARY KEY NOT NULL,
		value TEXT NOT NULL
	)`,
}

// Migrate creates the tables used by the subject and property stores.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("nil sqlx db")
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("set schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration tx: %w", err)
	}
	return nil
}
