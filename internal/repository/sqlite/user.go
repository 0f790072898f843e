package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/superlists/internal/apperror"
	"github.com/sakif/superlists/internal/model"
	"github.com/sakif/superlists/internal/repository"
)

// compile-time checks that *DB implements the accounts repositories
var (
	_ repository.UserRepository  = (*DB)(nil)
	_ repository.TokenRepository = (*DB)(nil)
)

// GetOrCreateUser returns the user with the given email, creating it first if
// it does not exist yet.
//
// FIND-OR-CREATE WITHOUT A RACE:
// The naive version, SELECT, and INSERT if nothing came back, lets two
// concurrent logins for a brand-new address both decide to INSERT. Instead we
// always INSERT with ON CONFLICT DO NOTHING: exactly one statement can create
// the row, every other one silently does nothing. RowsAffected tells us which
// case we were, and the SELECT afterwards reads whichever row won.
func (db *DB) GetOrCreateUser(ctx context.Context, email string) (*model.User, bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, created_at) VALUES (?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		email, time.Now(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: inserting user %s: %w", email, err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	user, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}

	return user, inserted == 1, nil
}

// GetUserByEmail retrieves a user by email.
// Returns apperror.ErrNotFound if no user has that email. It never creates one.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT email, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&u.Email, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", email, err)
	}

	return &u, nil
}

// CreateToken stores a login token. token.UID must already be set; the
// service generates it so the repository never decides what a credential
// looks like.
func (db *DB) CreateToken(ctx context.Context, token *model.Token) error {
	token.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tokens (uid, email, created_at) VALUES (?, ?, ?)`,
		token.UID, token.Email, token.CreatedAt,
	)
	if err != nil {
		if constraintCode(err) != 0 {
			return apperror.Conflict("token", "uid")
		}
		return fmt.Errorf("sqlite: inserting token for %s: %w", token.Email, err)
	}

	return nil
}

// GetTokenByUID looks a token up by the UID from a login link.
// Returns apperror.ErrNotFound for unknown UIDs.
func (db *DB) GetTokenByUID(ctx context.Context, uid string) (*model.Token, error) {
	var t model.Token

	err := db.conn.QueryRowContext(ctx,
		`SELECT uid, email, created_at FROM tokens WHERE uid = ?`,
		uid,
	).Scan(&t.UID, &t.Email, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("token", uid)
		}
		return nil, fmt.Errorf("sqlite: getting token: %w", err)
	}

	return &t, nil
}
