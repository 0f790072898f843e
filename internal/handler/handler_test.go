package handler_test

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/superlists/internal/auth"
	"github.com/sakif/superlists/internal/handler"
	"github.com/sakif/superlists/internal/mail"
	"github.com/sakif/superlists/internal/model"
	"github.com/sakif/superlists/internal/repository/sqlite"
	"github.com/sakif/superlists/internal/service"
	"github.com/sakif/superlists/web"
)

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================
//
// Handler tests run against the real services on an in-memory SQLite
// database. Only email delivery is swapped out (mail.Outbox), so the tests
// can read back the login links that were "sent".

type testEnv struct {
	router   http.Handler
	lists    *service.ListService
	auth     *service.AuthService
	sessions *auth.SessionService
	outbox   *mail.Outbox
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions, err := auth.NewSessionService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	outbox := mail.NewOutbox()
	lists := service.NewListService(db, logger)
	authSvc := service.NewAuthService(db, db, sessions, outbox, "", logger)

	pages, err := handler.NewRenderer(web.Templates, logger)
	require.NoError(t, err)

	lh := handler.NewListHandler(lists, pages, logger)
	ah := handler.NewAuthHandler(authSvc, auth.CookieOptions{MaxAge: time.Hour}, baseURL, logger)

	r := chi.NewRouter()
	r.Use(auth.LoadUser(sessions, authSvc))
	r.Get("/", lh.HandleHome)
	r.Post("/lists/new", lh.HandleNewList)
	r.Get("/lists/{id}/", lh.HandleViewList)
	r.Post("/lists/{id}/", lh.HandleAddItem)
	r.Post("/accounts/send_login_email", ah.HandleSendLoginEmail)
	r.Get("/accounts/login", ah.HandleLogin)
	r.Get("/accounts/logout", ah.HandleLogout)
	r.Get("/api/lists/{id}/items", lh.HandleAPIListItems)
	r.Post("/api/lists/{id}/items", lh.HandleAPIAddItem)
	r.Delete("/api/lists/{id}", lh.HandleAPIDeleteList)

	return &testEnv{
		router:   r,
		lists:    lists,
		auth:     authSvc,
		sessions: sessions,
		outbox:   outbox,
	}
}

// get performs a GET, sending cookies along.
func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// postForm performs a form POST.
func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// postJSON performs a JSON POST.
func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// delete performs a DELETE.
func (e *testEnv) delete(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// cookie returns the named cookie set by a response, or nil.
func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// escaped is how html/template renders s, e.g. "can't" → "can&#39;t".
func escaped(s string) string {
	return template.HTMLEscapeString(s)
}

func (e *testEnv) newList(t *testing.T, first string) *model.List {
	t.Helper()
	list, err := e.lists.CreateList(t.Context(), first)
	require.NoError(t, err)
	return list
}

// =========================================================================
// HOME PAGE
// =========================================================================

func TestHome(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "Start a new To-Do list")
	assert.Contains(t, body, `action="/lists/new"`)
	assert.Contains(t, body, `action="/accounts/send_login_email"`)
	assert.NotContains(t, body, "Logged in as")
}

// =========================================================================
// NEW LIST
// =========================================================================

func TestNewList_RedirectsToList(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.postForm("/lists/new", url.Values{"text": {"Buy peacock feathers"}})

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Regexp(t, `^/lists/[^/]+/$`, location)

	page := env.get(location)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "1: Buy peacock feathers")
}

func TestNewList_EmptyRerendersHome(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.postForm("/lists/new", url.Values{"text": {""}})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Start a new To-Do list")
	assert.Contains(t, body, escaped(service.EmptyItemError))
}

// =========================================================================
// VIEW LIST / ADD ITEM
// =========================================================================

func TestViewList(t *testing.T) {
	env := newTestEnv(t, "")
	list := env.newList(t, "itemey 1")
	_, err := env.lists.AddItem(t.Context(), list.ID, "itemey 2")
	require.NoError(t, err)
	env.newList(t, "other list item")

	rec := env.get(list.URL())

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Your To-Do list")
	assert.Contains(t, body, `id="id_list_table"`)
	assert.Contains(t, body, `action="`+list.URL()+`"`)
	assert.Less(t, strings.Index(body, "1: itemey 1"), strings.Index(body, "2: itemey 2"))
	assert.NotContains(t, body, "other list item")
}

func TestViewList_NotFound(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.get("/lists/does-not-exist/")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddItem_Redirects(t *testing.T) {
	env := newTestEnv(t, "")
	list := env.newList(t, "first")

	rec := env.postForm(list.URL(), url.Values{"text": {"A new item for an existing list"}})

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, list.URL(), rec.Header().Get("Location"))

	items, err := env.lists.ListItems(t.Context(), list.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A new item for an existing list", items[1].Text)
}

func TestAddItem_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		message string
	}{
		{"empty", "", service.EmptyItemError},
		{"whitespace", "   ", service.EmptyItemError},
		{"duplicate", "textey", service.DuplicateItemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			list := env.newList(t, "textey")

			rec := env.postForm(list.URL(), url.Values{"text": {tt.text}})

			assert.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "Your To-Do list")
			assert.Contains(t, body, escaped(tt.message))
			assert.Equal(t, 1, strings.Count(body, "textey</td>"), "the stored item is shown exactly once")

			items, _ := env.lists.ListItems(t.Context(), list.ID)
			assert.Len(t, items, 1)
		})
	}
}

func TestAddItem_UnknownList(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.postForm("/lists/nope/", url.Values{"text": {"hello"}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =========================================================================
// JSON API
// =========================================================================

func TestAPI_ListItems(t *testing.T) {
	env := newTestEnv(t, "")
	list := env.newList(t, "first")
	env.lists.AddItem(t.Context(), list.ID, "second")

	rec := env.get("/api/lists/" + list.ID + "/items")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var items []model.Item
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Text)
	assert.Equal(t, "second", items[1].Text)
}

func TestAPI_AddItem(t *testing.T) {
	env := newTestEnv(t, "")
	list := env.newList(t, "first")
	path := "/api/lists/" + list.ID + "/items"

	t.Run("created", func(t *testing.T) {
		rec := env.postJSON(path, `{"text":"second"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var item model.Item
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
		assert.Equal(t, "second", item.Text)
		assert.Equal(t, list.ID, item.ListID)
		assert.NotEmpty(t, item.ID)
	})

	t.Run("duplicate", func(t *testing.T) {
		rec := env.postJSON(path, `{"text":"first"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "validation_error", resp.Error)
		assert.Equal(t, service.DuplicateItemError, resp.Message)
	})

	t.Run("empty", func(t *testing.T) {
		rec := env.postJSON(path, `{"text":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "You can't have an empty list item")
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := env.postJSON(path, `{"text":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_json")
	})

	t.Run("unknown list", func(t *testing.T) {
		rec := env.postJSON("/api/lists/nope/items", `{"text":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_found")
	})
}

func TestAPI_DeleteList(t *testing.T) {
	env := newTestEnv(t, "")
	list := env.newList(t, "first")

	rec := env.delete("/api/lists/" + list.ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, env.get(list.URL()).Code)
	assert.Equal(t, http.StatusNotFound, env.delete("/api/lists/"+list.ID).Code)
}

func TestAPI_ListItems_UnknownList(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.get("/api/lists/nope/items")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =========================================================================
// LOGIN FLOW
// =========================================================================

func TestSendLoginEmail(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.postForm("/accounts/send_login_email", url.Values{"email": {"edith@example.com"}})

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	msg, ok := env.outbox.Last()
	require.True(t, ok, "an email should have been sent")
	assert.Equal(t, "edith@example.com", msg.To)
	assert.Equal(t, "noreply@superlists", msg.From)
	assert.Equal(t, "Your login link for Superlists", msg.Subject)
	// httptest.NewRequest addresses example.com over plain HTTP
	assert.Contains(t, msg.Body, "http://example.com/accounts/login?token=")

	// The flash shows up once on the next page, then is gone.
	flash := cookie(rec, "flash")
	require.NotNil(t, flash)
	home := env.get("/", flash)
	assert.Contains(t, home.Body.String(), escaped(handler.LoginEmailSentMessage))
	cleared := cookie(home, "flash")
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
	assert.NotContains(t, env.get("/").Body.String(), escaped(handler.LoginEmailSentMessage))
}

func TestSendLoginEmail_ForwardedProto(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/accounts/send_login_email",
		strings.NewReader(url.Values{"email": {"a@b.com"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Host = "lists.example.com"
	env.router.ServeHTTP(httptest.NewRecorder(), req)

	msg, ok := env.outbox.Last()
	require.True(t, ok)
	assert.Contains(t, msg.Body, "https://lists.example.com/accounts/login?token=")
}

func TestSendLoginEmail_ConfiguredBaseURL(t *testing.T) {
	env := newTestEnv(t, "https://superlists.example.org")

	env.postForm("/accounts/send_login_email", url.Values{"email": {"a@b.com"}})

	msg, ok := env.outbox.Last()
	require.True(t, ok)
	assert.Contains(t, msg.Body, "https://superlists.example.org/accounts/login?token=")
}

func TestSendLoginEmail_InvalidAddress(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.postForm("/accounts/send_login_email", url.Values{"email": {"not an email"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Empty(t, env.outbox.Messages())

	home := env.get("/", cookie(rec, "flash"))
	assert.Contains(t, home.Body.String(), service.InvalidEmailError)
}

func TestSendLoginEmail_DeliveryFailureStillRedirects(t *testing.T) {
	env := newTestEnv(t, "")
	env.outbox.Err = assert.AnError

	rec := env.postForm("/accounts/send_login_email", url.Values{"email": {"a@b.com"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLogin_ValidToken(t *testing.T) {
	env := newTestEnv(t, "")
	token, err := env.auth.IssueToken(t.Context(), "edith@example.com")
	require.NoError(t, err)

	rec := env.get("/accounts/login?token=" + token.UID)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	session := cookie(rec, auth.SessionCookieName)
	require.NotNil(t, session, "login should set the session cookie")
	assert.True(t, session.HttpOnly)

	home := env.get("/", session)
	body := home.Body.String()
	assert.Contains(t, body, "Logged in as edith@example.com")
	assert.Contains(t, body, `href="/accounts/logout"`)
	assert.NotContains(t, body, `action="/accounts/send_login_email"`)
}

func TestLogin_InvalidToken(t *testing.T) {
	env := newTestEnv(t, "")

	for _, path := range []string{"/accounts/login?token=bogus", "/accounts/login"} {
		rec := env.get(path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/", rec.Header().Get("Location"), path)
		assert.Nil(t, cookie(rec, auth.SessionCookieName), path)
	}

	user, err := env.auth.GetUser(t.Context(), "bogus")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, "")
	result, err := env.auth.CreateSession(t.Context(), "edith@example.com")
	require.NoError(t, err)
	session := &http.Cookie{Name: auth.SessionCookieName, Value: result.Session}

	require.Contains(t, env.get("/", session).Body.String(), "Logged in as edith@example.com")

	rec := env.get("/accounts/logout", session)

	assert.Equal(t, http.StatusFound, rec.Code)
	cleared := cookie(rec, auth.SessionCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
	assert.NotContains(t, env.get("/").Body.String(), "Logged in as")
}
