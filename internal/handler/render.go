// Package handler contains the HTTP request handlers.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, a function with the http.HandlerFunc signature, which
// chi's router accepts directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (form values, query params, JSON bodies)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, HTML or JSON)
//
// Handlers should NOT contain business logic. They are the "glue" between
// HTTP and the services.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/superlists/internal/auth"
	"github.com/sakif/superlists/internal/model"
)

// Page names, one per content template.
const (
	pageHome = "home"
	pageList = "list"
)

// pageData is what every page template receives. Fields a page doesn't use
// stay zero.
type pageData struct {
	User     *model.User
	Messages []Flash

	// Form state: Error is the validation message shown under the input,
	// Text the value to put back into it.
	Error string
	Text  string

	// list page only
	List  *model.List
	Items []model.Item
}

// Renderer holds one parsed template set per page.
//
// TEMPLATE COMPOSITION:
// base.html defines the whole page with {{block "header_text" .}} style
// placeholders. Each page file (home.html, list.html) fills some of them with
// {{define "header_text"}}...{{end}}. Each page gets its own template set
// (base + page) because two pages defining the same block name in ONE set
// would overwrite each other.
//
// Templates are parsed once at startup (expensive) and executed per request (cheap).
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses templates/base.html together with each page from fsys.
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		// {{inc $i}} → 1-based item numbers
		"inc": func(i int) int { return i + 1 },
	}

	pages := make(map[string]*template.Template)
	for _, page := range []string{pageHome, pageList} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys,
			"templates/base.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", page, err)
		}
		pages[page] = tmpl
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// render writes page with the given status.
//
// The logged-in user and any pending flash messages are filled in here so
// individual handlers don't have to remember them. Rendering goes to a
// buffer first: if the template fails halfway, the visitor gets a clean 500
// instead of half a page.
func (rd *Renderer) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if user, ok := auth.UserFromContext(r.Context()); ok {
		data.User = user
	}
	data.Messages = popFlash(w, r)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Set content type header BEFORE writing the body
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
