// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database. It lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - A to-do list app with one server
// - Development and testing (use ":memory:" for in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, no C compiler needed, works everywhere Go works.
//
// CONSTRAINTS LIVE IN THE SCHEMA:
// The two rules that matter most, "item text is unique within its list" and
// "a user is identified by exactly one email", are enforced by UNIQUE and
// PRIMARY KEY constraints, not by SELECT-then-INSERT code. Two requests racing
// to insert the same row cannot both win; the loser gets a constraint error,
// which we translate into apperror.Conflict.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// DRIVER REGISTRATION:
	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". We also use it by name to inspect error codes.
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements ListRepository, UserRepository and TokenRepository.
type DB struct {
	conn *sql.DB
}

// New opens (creating if necessary) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/superlists.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (great for tests, lost on close)
//
// ONE CONNECTION:
// PRAGMAs such as foreign_keys are per-connection, and every new connection
// to ":memory:" opens a brand-new empty database. Capping the pool at one
// connection keeps both behaviours predictable. SQLite serialises writers
// anyway, so we lose very little throughput.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// Ping verifies the connection actually works.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. We need them ON so that
	// deleting a list cascades to its items.
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

// migrate creates the schema. Every statement is idempotent, so this runs on
// every start.
func (db *DB) migrate() error {
	// lists + items
	// seq is the display order. It is assigned by the INSERT itself (see
	// AddItem) so it only ever increases.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS lists (
			id         TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS items (
			id         TEXT PRIMARY KEY,
			list_id    TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
			text       TEXT NOT NULL CHECK (text <> ''),
			seq        INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (list_id, text)
		);
		CREATE INDEX IF NOT EXISTS idx_items_list_seq ON items(list_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("creating lists tables: %w", err)
	}

	// users + tokens
	// tokens.email is deliberately not a foreign key: tokens are issued
	// before the user exists.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			email      TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS tokens (
			uid        TEXT PRIMARY KEY,
			email      TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tokens_email ON tokens(email);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts tables: %w", err)
	}

	return nil
}

// Flush deletes every row from every table, leaving the schema in place.
// Used by the `manage flush` command to reset a staging database.
func (db *DB) Flush(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning flush: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	for _, table := range []string{"items", "lists", "tokens", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlite: flushing %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing flush: %w", err)
	}
	return nil
}

// constraintCode returns the extended SQLite result code if err is a
// constraint violation, or 0 otherwise.
func constraintCode(err error) int {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0
	}
	switch code := sqliteErr.Code(); code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		sqlite3.SQLITE_CONSTRAINT_CHECK:
		return code
	case sqlite3.SQLITE_CONSTRAINT:
		// Extended codes disabled: fall back to the message text.
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return sqlite3.SQLITE_CONSTRAINT_UNIQUE
		case strings.Contains(msg, "FOREIGN KEY"):
			return sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
		case strings.Contains(msg, "CHECK"):
			return sqlite3.SQLITE_CONSTRAINT_CHECK
		}
	}
	return 0
}
