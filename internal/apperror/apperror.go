// Package apperror defines the domain errors shared by the list store and
// the passwordless authenticator.
//
// Services return these errors; handlers translate them into HTTP responses
// (a re-rendered form, a 404 page, or a JSON error body). Nothing below the
// handler layer knows about status codes.
//
// Match on the kind with errors.Is(err, apperror.ErrNotFound) and so on. The
// *AppError carries the details for whoever ends up showing the error.
package apperror

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

// AppError is a domain error of one of the kinds above.
type AppError struct {
	Err      error  // kind, matched with errors.Is
	Resource string // "list", "item", "user", "token"
	Message  string // shown to the user as-is
	Field    string // form field the message belongs to, if any
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that no resource exists under key (a list id, an email,
// a token uid).
func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:      ErrNotFound,
		Resource: resource,
		Message:  fmt.Sprintf("%s %s not found", resource, key),
	}
}

// ValidationFailed reports a user-correctable problem with one form field.
// The message is rendered next to that field verbatim.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation detected by the storage layer.
// columns names the unique key that was violated, e.g. "list_id, text".
func Conflict(resource, columns string) *AppError {
	return &AppError{
		Err:      ErrConflict,
		Resource: resource,
		Message:  fmt.Sprintf("%s already exists (unique on %s)", resource, columns),
	}
}

// ValidationMessage extracts the user-facing message from a validation error
// anywhere in err's chain. ok is false for every other kind of error.
func ValidationMessage(err error) (field, message string, ok bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) || !errors.Is(appErr, ErrValidation) {
		return "", "", false
	}
	return appErr.Field, appErr.Message, true
}
