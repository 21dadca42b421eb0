package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; entry i brings the schema to version i+1.
// Statements use IF NOT EXISTS so a partially applied step can be re-run.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS turns (
			id              TEXT    PRIMARY KEY,
			conversation_id TEXT    NOT NULL,
			seq             INTEGER NOT NULL,
			role            TEXT    NOT NULL,
			text            TEXT    NOT NULL DEFAULT '',
			created_at      TEXT    NOT NULL,
			reply_to_id     TEXT    NOT NULL DEFAULT '',
			reply_text      TEXT    NOT NULL DEFAULT '',
			liked           INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id, seq)`,

		`CREATE TABLE IF NOT EXISTS facts (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL DEFAULT '',
			source_turn_id  TEXT NOT NULL DEFAULT '',
			persona_id      TEXT NOT NULL DEFAULT '',
			content         TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			embedding       BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_created ON facts(created_at)`,

		`CREATE TABLE IF NOT EXISTS excerpts (
			id          TEXT    PRIMARY KEY,
			document_id TEXT    NOT NULL,
			ordinal     INTEGER NOT NULL DEFAULT 0,
			text        TEXT    NOT NULL,
			embedding   BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_excerpts_document ON excerpts(document_id, ordinal)`,
	},
}

// schemaVersion is the version reached after all migrations.
var schemaVersion = len(migrations)

// migrate brings the database schema to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	for v := current; v < schemaVersion; v++ {
		if err := applyMigration(ctx, db, v+1, migrations[v]); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, version int, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate to %d: %w\nstatement: %s", version, err, stmt)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}
	return tx.Commit()
}
