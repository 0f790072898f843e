package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// JSON API for list items. Same service, same rules as the HTML forms; only
// the encoding differs.
//
//	GET    /api/lists/{id}/items → 200 [{"id":…,"listId":…,"text":…,"seq":…}, …]
//	POST   /api/lists/{id}/items → 201 {"id":…,"text":…}   body {"text": "..."}
//	DELETE /api/lists/{id}       → 204, the list and all its items are gone
//
// Errors use the standard ErrorResponse shape from response.go.

// addItemRequest is the POST body.
type addItemRequest struct {
	Text string `json:"text"`
}

// maxAPIBody caps request bodies. An item is a line of text.
const maxAPIBody = 64 << 10

// HandleAPIListItems returns a list's items as JSON.
//
// HTTP: GET /api/lists/{id}/items
func (h *ListHandler) HandleAPIListItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.lists.GetList(r.Context(), id); err != nil {
		h.apiError(w, r, err)
		return
	}

	items, err := h.lists.ListItems(r.Context(), id)
	if err != nil {
		h.apiError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleAPIAddItem adds an item from a JSON body.
//
// HTTP: POST /api/lists/{id}/items
// REQUEST BODY: {"text": "Buy peacock feathers"}
func (h *ListHandler) HandleAPIAddItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req addItemRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "Request body must be a JSON object like {\"text\": \"...\"}",
		})
		return
	}

	item, err := h.lists.AddItem(r.Context(), id, req.Text)
	if err != nil {
		h.apiError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// HandleAPIDeleteList deletes a list and its items.
//
// HTTP: DELETE /api/lists/{id}
func (h *ListHandler) HandleAPIDeleteList(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.DeleteList(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.apiError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiError logs unexpected errors before handing them to writeError.
func (h *ListHandler) apiError(w http.ResponseWriter, r *http.Request, err error) {
	if isUnexpected(err) {
		h.logger.Error("api request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, err)
}
