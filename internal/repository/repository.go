// Package repository declares the storage interfaces the services depend on.
//
// Services only ever see these interfaces; internal/repository/sqlite
// provides the production implementation and the service tests provide
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/superlists/internal/model"
)

// ListRepository stores lists and their items.
type ListRepository interface {
	// CreateList inserts list together with its first item as one unit:
	// if the item cannot be stored, the list is not stored either.
	CreateList(ctx context.Context, list *model.List, first *model.Item) error
	GetList(ctx context.Context, id string) (*model.List, error)
	// AddItem returns an apperror.ErrConflict error when the list already
	// holds an item with the same text. The check is the storage's unique
	// constraint, never a separate lookup.
	AddItem(ctx context.Context, item *model.Item) error
	ListItems(ctx context.Context, listID string) ([]model.Item, error)
	// DeleteList removes a list and every item in it.
	DeleteList(ctx context.Context, id string) error
}

// UserRepository stores users keyed by email.
type UserRepository interface {
	// GetOrCreateUser atomically returns the user for email, inserting it
	// first if needed. created reports whether this call inserted the row.
	GetOrCreateUser(ctx context.Context, email string) (user *model.User, created bool, err error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// TokenRepository stores login tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token *model.Token) error
	GetTokenByUID(ctx context.Context, uid string) (*model.Token, error)
}
