package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Store-level errors. Adapters wrap driver failures in ErrUnavailable so the
// caller can tell "try again later" apart from a domain rejection.
var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("storage unavailable")
)

// Unavailable wraps a driver error with ErrUnavailable and the failing operation.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "baseline",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS account (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				username TEXT NOT NULL UNIQUE,
				email TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL,
				has_paid INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				failed_logins INTEGER NOT NULL DEFAULT 0,
				locked_until TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS instructor (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				bio TEXT NOT NULL DEFAULT '',
				image_url TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS session (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				day_of_week INTEGER NOT NULL,
				start_time TEXT NOT NULL,
				duration_minutes INTEGER NOT NULL,
				instructor_id TEXT NOT NULL,
				original_instructor_id TEXT NOT NULL DEFAULT '',
				capacity INTEGER NOT NULL,
				enrolled_user_ids TEXT NOT NULL DEFAULT '[]',
				location TEXT NOT NULL DEFAULT '',
				difficulty TEXT NOT NULL,
				is_substitute INTEGER NOT NULL DEFAULT 0,
				notification_message TEXT NOT NULL DEFAULT '',
				version INTEGER NOT NULL DEFAULT 0
			)`,
		},
	},
	{
		version: 2,
		name:    "outbox",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS outbox (
				id TEXT PRIMARY KEY,
				action_type TEXT NOT NULL,
				payload TEXT NOT NULL,
				status TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL DEFAULT 5,
				last_attempted_at TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				external_id TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox (status, created_at)`,
		},
	},
	{
		version: 3,
		name:    "session_schedule_index",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_session_day_start ON session (day_of_week, start_time)`,
		},
	},
}

// LatestSchemaVersion returns the version the migration chain ends at.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the applied schema version, 0 for an untracked database.
// PRE: db is a valid database connection
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB applies every pending migration, each in its own transaction.
// A file-backed database that already holds data is snapshotted to
// <path>.v<N>.bak before the first pending step runs.
// PRE: db is a valid database connection
// POST: SchemaVersion(db) == LatestSchemaVersion()
func MigrateDB(db *sql.DB, path string) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current >= LatestSchemaVersion() {
		return nil
	}

	if current > 0 && path != "" && path != ":memory:" {
		if err := backup(db, path, current); err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		slog.Info("schema_migrated", "version", m.version, "name", m.name)
	}
	return nil
}

func apply(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
		return err
	}
	return tx.Commit()
}

func backup(db *sql.DB, path string, version int) error {
	dest := fmt.Sprintf("%s.v%d.bak", path, version)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	if _, err := db.Exec(`VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("backup before migration: %w", err)
	}
	slog.Info("schema_backup_written", "path", dest, "version", version)
	return nil
}
