package handler

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// FLASH MESSAGES:
// A flash is a one-shot message that survives exactly one redirect:
// "Check your email..." is set by POST /accounts/send_login_email, which
// redirects to /, and the home page shows it once.
//
// We carry it in a short-lived cookie rather than server-side state. The
// value is base64url("level|text") because cookie values can't hold spaces,
// commas or semicolons.

const (
	flashCookieName = "flash"

	flashSuccess = "success"
	flashError   = "error"
)

// Flash is one message shown at the top of the next page.
type Flash struct {
	Level string
	Text  string
}

// setFlash queues a message for the next rendered page.
func setFlash(w http.ResponseWriter, level, text string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(level + "|" + text)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending message, if any, and deletes the cookie so it
// is shown only once. A cookie that doesn't decode is dropped silently.
func popFlash(w http.ResponseWriter, r *http.Request) []Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	level, text, ok := strings.Cut(string(raw), "|")
	if !ok || text == "" {
		return nil
	}
	return []Flash{{Level: level, Text: text}}
}
