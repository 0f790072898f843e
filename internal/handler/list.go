package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/superlists/internal/apperror"
	"github.com/sakif/superlists/internal/service"
)

// ListHandler serves the to-do list pages and the JSON items API.
//
// HTML ROUTES:
//
//	GET  /             → home page with the "new list" form
//	POST /lists/new    → create a list from its first item
//	GET  /lists/{id}/  → show a list
//	POST /lists/{id}/  → add an item to a list
//
// POST-REDIRECT-GET:
// Successful form posts answer 302 to the list page instead of rendering it
// directly, so refreshing the page never resubmits the form. Failed posts
// (validation errors) re-render with 200 so the message and the form are
// shown together.
type ListHandler struct {
	lists  *service.ListService
	pages  *Renderer
	logger *slog.Logger
}

// NewListHandler creates a ListHandler.
func NewListHandler(lists *service.ListService, pages *Renderer, logger *slog.Logger) *ListHandler {
	return &ListHandler{lists: lists, pages: pages, logger: logger}
}

// HandleHome renders the home page.
//
// HTTP: GET /
func (h *ListHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, pageHome, pageData{})
}

// HandleNewList creates a list whose first item is the posted text.
//
// HTTP: POST /lists/new  (form field "text")
func (h *ListHandler) HandleNewList(w http.ResponseWriter, r *http.Request) {
	text := r.PostFormValue("text")

	list, err := h.lists.CreateList(r.Context(), text)
	if err != nil {
		if _, msg, ok := apperror.ValidationMessage(err); ok {
			h.pages.render(w, r, http.StatusOK, pageHome, pageData{Error: msg, Text: text})
			return
		}
		h.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, list.URL(), http.StatusFound)
}

// HandleViewList shows a list and its items.
//
// HTTP: GET /lists/{id}/
func (h *ListHandler) HandleViewList(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, http.StatusOK, "", "")
}

// HandleAddItem adds the posted text to a list.
//
// HTTP: POST /lists/{id}/  (form field "text")
func (h *ListHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text := r.PostFormValue("text")

	_, err := h.lists.AddItem(r.Context(), id, text)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if _, msg, ok := apperror.ValidationMessage(err); ok {
			h.renderList(w, r, http.StatusOK, msg, text)
			return
		}
		h.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, "/lists/"+id+"/", http.StatusFound)
}

// renderList loads the list named in the URL and renders it, with an
// optional validation message and form value.
func (h *ListHandler) renderList(w http.ResponseWriter, r *http.Request, status int, errMsg, text string) {
	id := chi.URLParam(r, "id")

	list, err := h.lists.GetList(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.serverError(w, r, err)
		return
	}

	items, err := h.lists.ListItems(r.Context(), id)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.pages.render(w, r, status, pageList, pageData{
		List:  list,
		Items: items,
		Error: errMsg,
		Text:  text,
	})
}

// serverError logs the cause and answers a bare 500. The visitor never sees
// the underlying error text.
func (h *ListHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
