package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/superlists/internal/apperror"
	"github.com/sakif/superlists/internal/model"
)

// =========================================================================
// USER TESTS
// =========================================================================

func TestGetOrCreateUser_New(t *testing.T) {
	db := newTestDB(t)

	user, created, err := db.GetOrCreateUser(context.Background(), "edith@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateUser() error = %v", err)
	}
	if !created {
		t.Error("GetOrCreateUser() created = false for a new email")
	}
	if user.Email != "edith@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "edith@example.com")
	}
	if user.CreatedAt.IsZero() {
		t.Error("GetOrCreateUser() returned zero CreatedAt")
	}
}

func TestGetOrCreateUser_Existing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, _, err := db.GetOrCreateUser(ctx, "edith@example.com")
	if err != nil {
		t.Fatalf("first GetOrCreateUser(): %v", err)
	}

	second, created, err := db.GetOrCreateUser(ctx, "edith@example.com")
	if err != nil {
		t.Fatalf("second GetOrCreateUser(): %v", err)
	}
	if created {
		t.Error("second GetOrCreateUser() created = true, want false")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: got %v, want %v", second.CreatedAt, first.CreatedAt)
	}
	if n := countRows(t, db, "users"); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

// TestGetOrCreateUser_Concurrent races many first logins for the same address.
// Exactly one call may report created=true and exactly one row may exist.
func TestGetOrCreateUser_Concurrent(t *testing.T) {
	db := newTestDB(t)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		creates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := db.GetOrCreateUser(context.Background(), "race@example.com")
			if err != nil {
				t.Errorf("GetOrCreateUser(): %v", err)
				return
			}
			if created {
				mu.Lock()
				creates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if creates != 1 {
		t.Errorf("created=true reported %d times, want 1", creates)
	}
	if n := countRows(t, db, "users"); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

func TestGetUserByEmail_NotFoundDoesNotCreate(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
	if n := countRows(t, db, "users"); n != 0 {
		t.Errorf("users = %d, want 0", n)
	}
}

// =========================================================================
// TOKEN TESTS
// =========================================================================

func TestCreateToken_AndLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	token := &model.Token{UID: "abcd123", Email: "a@b.com"}
	if err := db.CreateToken(ctx, token); err != nil {
		t.Fatalf("CreateToken() error = %v", err)
	}
	if token.CreatedAt.IsZero() {
		t.Error("CreateToken() did not set CreatedAt")
	}

	found, err := db.GetTokenByUID(ctx, "abcd123")
	if err != nil {
		t.Fatalf("GetTokenByUID() error = %v", err)
	}
	if found.Email != "a@b.com" {
		t.Errorf("Email = %q, want %q", found.Email, "a@b.com")
	}

	// Looking a token up must not consume it.
	if _, err := db.GetTokenByUID(ctx, "abcd123"); err != nil {
		t.Errorf("second GetTokenByUID() error = %v", err)
	}
}

func TestCreateToken_SameEmailTwice(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.CreateToken(ctx, &model.Token{UID: "uid-1", Email: "a@b.com"})
	if err := db.CreateToken(ctx, &model.Token{UID: "uid-2", Email: "a@b.com"}); err != nil {
		t.Fatalf("second CreateToken() for same email: %v", err)
	}
	if n := countRows(t, db, "tokens"); n != 2 {
		t.Errorf("tokens = %d, want 2", n)
	}
}

func TestCreateToken_DuplicateUID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.CreateToken(ctx, &model.Token{UID: "same", Email: "a@b.com"})
	err := db.CreateToken(ctx, &model.Token{UID: "same", Email: "c@d.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateToken() duplicate uid error = %v, want ErrConflict", err)
	}
}

func TestGetTokenByUID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetTokenByUID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetTokenByUID() error = %v, want ErrNotFound", err)
	}
}
