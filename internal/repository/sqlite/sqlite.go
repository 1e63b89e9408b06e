// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite — no CGo, no C compiler, works
// everywhere Go works. The driver registers itself with database/sql under
// the name "sqlite" via its init function (the blank import below).
//
// SCHEMA NOTES:
// The original document model embeds the permission lists and submissions
// inside each form document and leans on the document store's atomic
// per-document update operators ($addToSet, $pull, $push). The relational
// rendition keeps the same contract with normalized child tables:
//
//   - form_collaborators gives idempotent grants via INSERT OR IGNORE and a
//     one-statement "remove from all three lists"; the index on user_id
//     serves the visible-forms query without scanning every form.
//   - submissions makes appends a single INSERT, so concurrent submissions
//     never clobber each other.
//   - questions stay a JSON column on forms: the editor replaces the whole
//     ordered list on every save, so there is nothing to query inside it.
//
// Foreign keys cascade, so deleting a form removes its collaborator rows and
// submissions with it — same semantics as deleting an embedded document.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. The repository implementations hang
// off it via Users and Forms.
type DB struct {
	conn *sql.DB
}

// Users returns the user repository backed by this database.
func (db *DB) Users() *UserStore {
	return &UserStore{db: db}
}

// Forms returns the form repository backed by this database.
func (db *DB) Forms() *FormStore {
	return &FormStore{db: db}
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and with ":memory:" every pool
	// connection would otherwise see its own separate database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — needed for a web
	// server where requests hit the DB concurrently.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; the cascade from forms to
	// collaborators and submissions depends on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL DEFAULT '',
			picture    TEXT NOT NULL DEFAULT '',
			role       TEXT NOT NULL DEFAULT 'user',
			status     TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS forms (
			name            TEXT PRIMARY KEY,
			status          TEXT NOT NULL DEFAULT 'draft',
			created_by      TEXT NOT NULL,
			created_by_name TEXT NOT NULL DEFAULT '',
			questions       TEXT NOT NULL DEFAULT '[]',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_forms_created_by ON forms(created_by);
		CREATE INDEX IF NOT EXISTS idx_forms_status ON forms(status);
	`)
	if err != nil {
		return fmt.Errorf("creating forms table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS form_collaborators (
			form_name TEXT NOT NULL REFERENCES forms(name) ON DELETE CASCADE,
			user_id   TEXT NOT NULL,
			role      TEXT NOT NULL CHECK (role IN ('admin','editor','viewer')),
			PRIMARY KEY (form_name, user_id, role)
		);
		CREATE INDEX IF NOT EXISTS idx_form_collaborators_user_id
			ON form_collaborators(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating form_collaborators table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id           TEXT PRIMARY KEY,
			form_name    TEXT NOT NULL REFERENCES forms(name) ON DELETE CASCADE,
			responses    TEXT NOT NULL DEFAULT '{}',
			submitted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_submissions_form_name
			ON submissions(form_name);
	`)
	if err != nil {
		return fmt.Errorf("creating submissions table: %w", err)
	}

	return nil
}
