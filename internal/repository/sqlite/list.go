package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/superlists/internal/apperror"
	"github.com/sakif/superlists/internal/model"
	"github.com/sakif/superlists/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops implementing repository.ListRepository, this line fails to compile.
var _ repository.ListRepository = (*DB)(nil)

// execQuerier is the part of *sql.DB and *sql.Tx that insertItem needs.
// Accepting the interface lets the same INSERT run inside or outside a transaction.
type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateList inserts a new list and its first item in a single transaction.
//
// TRANSACTIONS:
// BeginTx → ExecContext… → Commit. If anything fails before Commit, the
// deferred Rollback throws away every statement run on tx, so a list whose
// first item was rejected never becomes visible to anyone.
//
// On success list.ID/CreatedAt and first.ID/ListID/Seq/CreatedAt are filled in.
func (db *DB) CreateList(ctx context.Context, list *model.List, first *model.Item) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create list: %w", err)
	}
	defer tx.Rollback() // returns sql.ErrTxDone after Commit; safe to ignore

	list.ID = xid.New().String()
	list.CreatedAt = time.Now()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO lists (id, created_at) VALUES (?, ?)`,
		list.ID, list.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: inserting list: %w", err)
	}

	first.ListID = list.ID
	if err := insertItem(ctx, tx, first); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing list %s: %w", list.ID, err)
	}
	return nil
}

// GetList retrieves a list by ID.
// Returns apperror.ErrNotFound if no list exists with that ID.
func (db *DB) GetList(ctx context.Context, id string) (*model.List, error) {
	var list model.List

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM lists WHERE id = ?`,
		id,
	).Scan(&list.ID, &list.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("list", id)
		}
		return nil, fmt.Errorf("sqlite: getting list %s: %w", id, err)
	}

	return &list, nil
}

// AddItem appends an item to an existing list.
//
// Returns:
//   - apperror.ErrConflict  if the list already has an item with this text
//   - apperror.ErrNotFound  if item.ListID does not name a list
func (db *DB) AddItem(ctx context.Context, item *model.Item) error {
	return insertItem(ctx, db.conn, item)
}

// insertItem is shared by CreateList (inside its transaction) and AddItem.
//
// SEQUENCE NUMBERS:
// The seq value is computed by a sub-select inside the INSERT itself. SQLite
// runs the whole statement under its write lock, so two concurrent inserts
// can never read the same MAX(seq). RETURNING hands the chosen value back
// without a second query.
func insertItem(ctx context.Context, q execQuerier, item *model.Item) error {
	item.ID = xid.New().String()
	item.CreatedAt = time.Now()

	err := q.QueryRowContext(ctx,
		`INSERT INTO items (id, list_id, text, seq, created_at)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM items), ?)
		 RETURNING seq`,
		item.ID,
		item.ListID,
		item.Text,
		item.CreatedAt,
	).Scan(&item.Seq)
	if err != nil {
		switch constraintCode(err) {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return apperror.Conflict("item", "list_id, text")
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return apperror.NotFound("list", item.ListID)
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return apperror.ValidationFailed("text", "item text must not be empty")
		}
		return fmt.Errorf("sqlite: inserting item into list %s: %w", item.ListID, err)
	}

	return nil
}

// ListItems returns every item of one list in the order they were added.
// Items of other lists never appear.
func (db *DB) ListItems(ctx context.Context, listID string) ([]model.Item, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, list_id, text, seq, created_at
		 FROM items
		 WHERE list_id = ?
		 ORDER BY seq ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items of %s: %w", listID, err)
	}
	// CRITICAL: always close rows; an open *sql.Rows holds our only connection.
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.ListID, &it.Text, &it.Seq, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}

	return items, nil
}

// DeleteList removes a list. Its items go with it (ON DELETE CASCADE).
func (db *DB) DeleteList(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting list %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("list", id)
	}
	return nil
}
