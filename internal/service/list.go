// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses forms/JSON, renders pages, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept plain strings and return domain errors (apperror), never
// HTTP status codes. The same ListService backs the HTML pages, the JSON API
// and the tests; the same AuthService backs the login views and the manage CLI.
//
// DEPENDENCY INJECTION:
// ListService takes a repository.ListRepository (interface), NOT a *sqlite.DB.
// Tests pass an in-memory fake (see list_test.go); main.go passes SQLite.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/superlists/internal/apperror"
	"github.com/sakif/superlists/internal/model"
	"github.com/sakif/superlists/internal/repository"
)

// User-facing validation messages. They are shown verbatim under the
// item input, so they read like sentences rather than log lines.
const (
	EmptyItemError     = "You can't have an empty list item"
	DuplicateItemError = "You've already got this in your list"
)

// ListService handles business logic for to-do lists.
type ListService struct {
	repo   repository.ListRepository
	logger *slog.Logger
}

// NewListService creates a new ListService.
func NewListService(repo repository.ListRepository, logger *slog.Logger) *ListService {
	return &ListService{
		repo:   repo,
		logger: logger,
	}
}

// CreateList starts a new list whose first item is firstItemText.
//
// A list never exists without at least one item: if the text is rejected,
// nothing is stored. The repository inserts both rows in one transaction, so
// even a storage failure halfway through leaves no empty list behind.
func (s *ListService) CreateList(ctx context.Context, firstItemText string) (*model.List, error) {
	text := strings.TrimSpace(firstItemText)
	if text == "" {
		return nil, apperror.ValidationFailed("text", EmptyItemError)
	}

	list := &model.List{}
	item := &model.Item{Text: text}

	if err := s.repo.CreateList(ctx, list, item); err != nil {
		s.logger.Error("failed to create list", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating list: %w", err)
	}

	s.logger.Info("list created", slog.String("list_id", list.ID))
	return list, nil
}

// AddItem appends text to the list identified by listID.
//
// ERRORS, IN THE ORDER THEY ARE CHECKED:
//  1. apperror.ErrNotFound   → no such list
//  2. apperror.ErrValidation → empty text (EmptyItemError)
//  3. apperror.ErrValidation → text already in this list (DuplicateItemError)
//
// Only the first failing check is reported. The duplicate check is the
// database's unique constraint, which the repository reports as ErrConflict;
// we never look for the text first and insert second.
func (s *ListService) AddItem(ctx context.Context, listID, text string) (*model.Item, error) {
	if _, err := s.repo.GetList(ctx, listID); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", EmptyItemError)
	}

	item := &model.Item{ListID: listID, Text: text}
	if err := s.repo.AddItem(ctx, item); err != nil {
		switch {
		case errors.Is(err, apperror.ErrConflict):
			return nil, apperror.ValidationFailed("text", DuplicateItemError)
		case errors.Is(err, apperror.ErrNotFound):
			// list deleted between GetList and AddItem
			return nil, err
		}
		s.logger.Error("failed to add item",
			slog.String("list_id", listID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding item to list %s: %w", listID, err)
	}

	s.logger.Debug("item added",
		slog.String("list_id", listID),
		slog.Int64("seq", item.Seq),
	)
	return item, nil
}

// GetList retrieves a list by ID.
// Returns apperror.ErrNotFound if the list doesn't exist.
func (s *ListService) GetList(ctx context.Context, listID string) (*model.List, error) {
	if strings.TrimSpace(listID) == "" {
		return nil, apperror.NotFound("list", listID)
	}
	return s.repo.GetList(ctx, listID)
}

// DeleteList removes a list together with its items.
// Returns apperror.ErrNotFound if the list doesn't exist.
func (s *ListService) DeleteList(ctx context.Context, listID string) error {
	if strings.TrimSpace(listID) == "" {
		return apperror.NotFound("list", listID)
	}
	if err := s.repo.DeleteList(ctx, listID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete list",
			slog.String("list_id", listID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting list %s: %w", listID, err)
	}

	s.logger.Info("list deleted", slog.String("list_id", listID))
	return nil
}

// ListItems returns the items of exactly one list, oldest first.
// An unknown list simply has no items.
func (s *ListService) ListItems(ctx context.Context, listID string) ([]model.Item, error) {
	items, err := s.repo.ListItems(ctx, listID)
	if err != nil {
		s.logger.Error("failed to list items",
			slog.String("list_id", listID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing items of %s: %w", listID, err)
	}
	return items, nil
}
