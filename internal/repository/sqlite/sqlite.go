// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// UNIQUENESS AS THE SOURCE OF TRUTH:
// The users table carries UNIQUE constraints on email, username, and
// google_id. Service-level existence checks are only an optimization;
// two concurrent registrations racing on the same email are arbitrated
// here, by the constraint, and the loser gets apperror.ErrDuplicate.
// SQLite treats NULLs as distinct for UNIQUE, which is exactly what the
// optional username/google_id columns need.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
//
// sql.DB is itself a pool, so one *DB is shared by every request.
// Each operation acquires a connection from the pool, runs its statement
// transactionally, and releases the connection on every exit path.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/bienestar.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" opens its own private
	// database, so the schema would exist on one connection and not the
	// others. A single connection keeps them all on the same database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces an immediate connection so a bad path or permissions
	// problem surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is happening.
	// Default SQLite locks the whole file during writes, which stalls a
	// web server under any real traffic.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Mood entries and posts
	// reference users(id), so turn them on.
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

// Close closes the database connection pool. Always defer this next to
// New; it flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on every startup.
func (db *DB) migrate() error {
	// users: one row per identity, whichever login path created it.
	// username and google_id are nullable AND unique: SQLite permits any
	// number of NULLs in a UNIQUE column, so Google-only accounts without
	// a username don't collide with each other.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                   TEXT PRIMARY KEY,
			username             TEXT UNIQUE,
			email                TEXT NOT NULL UNIQUE,
			password_hash        TEXT,
			google_id            TEXT UNIQUE,
			google_access_token  TEXT,
			google_refresh_token TEXT,
			avatar_url           TEXT,
			created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS mood_entries (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			mood       TEXT NOT NULL,
			note       TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_mood_entries_user_id ON mood_entries(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating mood_entries table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS community_posts (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			author     TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL,
			likes      INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_community_posts_created_at ON community_posts(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating community_posts table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE (or primary
// key) constraint failure. This is how a losing concurrent writer is
// recognised and translated into a duplicate error.
func isUniqueViolation(err error) bool {
	var serr *sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
}

// nullable converts the model's ""-means-absent convention to SQL NULL so
// the UNIQUE constraints on optional columns behave.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// fromNull is the inverse of nullable for scanning.
func fromNull(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
