package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/superlists/internal/apperror"
	"github.com/sakif/superlists/internal/auth"
	"github.com/sakif/superlists/internal/service"
)

// LoginEmailSentMessage is flashed after a login link is requested.
const LoginEmailSentMessage = "Check your email, we've sent you a link you can use to log in."

// AuthHandler manages passwordless login.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSendLoginEmail → issue a token and mail the login link
//   - HandleLogin          → exchange a link's token for a session cookie
//   - HandleLogout         → clear the session cookie
//
// Every one of them ends in a redirect to the home page. A login attempt
// with a bad token is not an error page: the visitor simply lands on the
// home page still logged out.
type AuthHandler struct {
	auth    *service.AuthService
	cookies auth.CookieOptions
	baseURL string
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
//
// baseURL is the public scheme+host used in login links. When empty, it is
// worked out from each request (see requestBaseURL).
func NewAuthHandler(svc *service.AuthService, cookies auth.CookieOptions, baseURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    svc,
		cookies: cookies,
		baseURL: baseURL,
		logger:  logger,
	}
}

// HandleSendLoginEmail mails a login link to the posted address.
//
// HTTP: POST /accounts/send_login_email  (form field "email")
//
// Always redirects home. A malformed address gets an error flash; everything
// else, including an SMTP failure (logged by the service), gets the
// "Check your email" flash.
func (h *AuthHandler) HandleSendLoginEmail(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")

	_, err := h.auth.SendLoginEmail(r.Context(), email, h.linkBase(r))
	switch {
	case err == nil:
		setFlash(w, flashSuccess, LoginEmailSentMessage)
	case errors.Is(err, apperror.ErrValidation):
		_, msg, _ := apperror.ValidationMessage(err)
		setFlash(w, flashError, msg)
	default:
		h.logger.Error("send login email failed", slog.String("error", err.Error()))
		setFlash(w, flashSuccess, LoginEmailSentMessage)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogin completes a login from an emailed link.
//
// HTTP: GET /accounts/login?token=UID
//
// Known token → session cookie set, redirect home.
// Unknown or missing token → no cookie change, redirect home.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.auth.Login(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.logger.Error("login failed", slog.String("error", err.Error()))
	}
	if result != nil {
		auth.SetSessionCookie(w, result.Session, h.cookies)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout ends the session.
//
// HTTP: GET /accounts/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookies)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) linkBase(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	return requestBaseURL(r)
}

// requestBaseURL rebuilds scheme://host as the visitor addressed us.
// Behind a TLS-terminating proxy the request arrives over plain HTTP, so the
// X-Forwarded-Proto header wins over r.TLS.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
