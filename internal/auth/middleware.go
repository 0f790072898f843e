package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/superlists/internal/model"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "sessionid"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "user", u), ANY package that knows the string "user"
// can read or shadow your value. Only THIS package can create a key of type
// contextKey, so only this package can read or write the user in the context.
type contextKey string

const userKey contextKey = "user"

// UserGetter looks a user up by email. For an unknown email it returns a nil
// user or an error, and never creates anything.
//
// Defined here, where it is consumed, so auth doesn't import the service layer.
type UserGetter interface {
	GetUser(ctx context.Context, email string) (*model.User, error)
}

// LoadUser is a middleware that identifies the visitor on every request.
//
// It reads the session cookie, validates it, and rehydrates the User through
// users.GetUser. Any failure along the way, no cookie, bad signature, expired,
// user deleted since, simply leaves the request anonymous. Nothing here ever
// rejects a request: every page on this site works for anonymous visitors.
//
// MIDDLEWARE PATTERN IN GO:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	    })
//	}
func LoadUser(sessions *SessionService, users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := loadUser(r, sessions, users); user != nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func loadUser(r *http.Request, sessions *SessionService, users UserGetter) *model.User {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		// http.ErrNoCookie: anonymous
		return nil
	}

	email, err := sessions.Validate(cookie.Value)
	if err != nil {
		return nil
	}

	user, err := users.GetUser(r.Context(), email)
	if err != nil {
		return nil
	}
	return user
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the logged-in user from the request context.
//
// Returns (nil, false) if the request is anonymous.
//
// Usage in handlers:
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // anonymous visitor
//	}
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// CookieOptions controls the session cookie's lifetime and transport.
type CookieOptions struct {
	MaxAge time.Duration
	// Secure restricts the cookie to HTTPS. Off in local development.
	Secure bool
}

// SetSessionCookie logs the browser in by storing a signed session token.
//
// COOKIE FLAGS:
//   - HttpOnly: JavaScript cannot read it, so XSS can't steal the session
//   - SameSite=Lax: sent on top-level navigations (clicking the email link
//     works) but not on cross-site subrequests
func SetSessionCookie(w http.ResponseWriter, session string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   int(opts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie logs the browser out. MaxAge -1 tells the browser to
// delete the cookie immediately.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
