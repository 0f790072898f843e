package handler

// JSON RESPONSE HELPERS:
// Every API handler answers through writeJSON / writeError so responses look
// the same everywhere:
//
//	writeJSON(w, http.StatusOK, data)
//	writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//
//	{"error": "validation_error", "message": "You've already got this in your list"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/superlists/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE writing the body. Once Encode writes,
// the headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation → 400 validation_error
//	apperror.ErrNotFound   → 404 not_found
//	apperror.ErrConflict   → 409 conflict
//	anything else          → 500 internal_error (details never leave the server)
//
// errors.As walks the wrap chain, so
// fmt.Errorf("adding item: %w", apperror.NotFound(...)) still maps to 404.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := statusFor(err)
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// NEVER expose internal error details to the client: the raw message might
	// contain SQL, file paths, or other sensitive info.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}

// isUnexpected reports whether err would become a 500, i.e. whether it is
// worth logging.
func isUnexpected(err error) bool {
	status, _ := statusFor(err)
	return status == http.StatusInternalServerError
}
