// Package service — passwordless authentication.
//
// AuthService is the business logic for logging in by email link:
//
//	AuthHandler (HTTP) → AuthService → UserRepository / TokenRepository (DB)
//	                                 ↘ mail.Sender (login link)
//	                                 ↘ auth.SessionService (session token)
//
// LOGIN FLOW:
//  1. SendLoginEmail: store a Token{UID, Email}, mail a link containing UID
//  2. Login(UID): resolve the token's email, find-or-create the User,
//     mint a session token for the handler to put in a cookie
//
// Tokens are neither consumed nor expired: a link keeps working for as long
// as its row exists.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/superlists/internal/apperror"
	"github.com/sakif/superlists/internal/auth"
	mailer "github.com/sakif/superlists/internal/mail"
	"github.com/sakif/superlists/internal/model"
	"github.com/sakif/superlists/internal/repository"
)

const (
	// LoginEmailSubject is the subject line of every login email.
	LoginEmailSubject = "Your login link for Superlists"
	// DefaultFromAddress is used when no sender address is configured.
	DefaultFromAddress = "noreply@superlists"
	// LoginPath is where login links point.
	LoginPath = "/accounts/login"
	// InvalidEmailError is flashed when the login form gets a bad address.
	InvalidEmailError = "Please enter a valid email address"
)

// AuthService handles passwordless authentication.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users     repository.UserRepository  → find-or-create users by email
//   - tokens    repository.TokenRepository → store/look up login tokens
//   - sessions  *auth.SessionService       → sign session tokens
//   - sender    mail.Sender                → deliver login links
type AuthService struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	sessions *auth.SessionService
	sender   mailer.Sender
	from     string
	logger   *slog.Logger
}

// NewAuthService creates an AuthService. An empty from means DefaultFromAddress.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	sessions *auth.SessionService,
	sender mailer.Sender,
	from string,
	logger *slog.Logger,
) *AuthService {
	if from == "" {
		from = DefaultFromAddress
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		sender:   sender,
		from:     from,
		logger:   logger,
	}
}

// AuthResult bundles the user record and the signed session token so the
// handler can set the cookie in one step.
type AuthResult struct {
	User    *model.User
	Session string
}

// IssueToken stores a new login token for email.
//
// Every call creates a new token with a fresh random UID, even for an email
// that already has some. Earlier links keep working.
func (s *AuthService) IssueToken(ctx context.Context, email string) (*model.Token, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", InvalidEmailError)
	}

	token := &model.Token{
		UID:   uuid.NewString(),
		Email: email,
	}
	if err := s.tokens.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", email, err)
	}

	s.logger.Info("login token issued", slog.String("email", email))
	return token, nil
}

// SendLoginEmail issues a token for email and mails the login link.
//
// baseURL is the scheme+host the link should point at, e.g.
// "https://superlists.example.com". The token is returned even when
// delivery fails, together with the error.
func (s *AuthService) SendLoginEmail(ctx context.Context, email, baseURL string) (*model.Token, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(ctx, email)
	if err != nil {
		return nil, err
	}

	msg := mailer.Message{
		From:    s.from,
		To:      email,
		Subject: LoginEmailSubject,
		Body:    "Use this link to log in:\n\n" + LoginURL(baseURL, token.UID),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send login email",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return token, fmt.Errorf("service/auth: sending login email: %w", err)
	}

	return token, nil
}

// LoginURL builds the absolute login link for uid.
func LoginURL(baseURL, uid string) string {
	return strings.TrimRight(baseURL, "/") + LoginPath + "?token=" + url.QueryEscape(uid)
}

// Authenticate resolves a token UID to a user.
//
// Unknown UID → (nil, nil): a stale or mistyped link is not an error, the
// visitor just isn't logged in. Nothing is created in that case.
// Known UID → the user with the token's email, created on first login.
func (s *AuthService) Authenticate(ctx context.Context, uid string) (*model.User, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, nil
	}

	token, err := s.tokens.GetTokenByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login with unknown token")
			return nil, nil
		}
		return nil, fmt.Errorf("service/auth: looking up token: %w", err)
	}

	user, created, err := s.users.GetOrCreateUser(ctx, token.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving user %s: %w", token.Email, err)
	}
	if created {
		s.logger.Info("user created", slog.String("email", user.Email))
	}

	return user, nil
}

// GetUser returns the user with email, or (nil, nil) if there is none.
// It never creates a user.
func (s *AuthService) GetUser(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", email, err)
	}
	return user, nil
}

// Login authenticates uid and signs a session for the resulting user.
// Returns (nil, nil) when uid doesn't resolve.
func (s *AuthService) Login(ctx context.Context, uid string) (*AuthResult, error) {
	user, err := s.Authenticate(ctx, uid)
	if err != nil || user == nil {
		return nil, err
	}
	return s.startSession(user)
}

// CreateSession logs email in without a link: the user is found or created
// and a session signed straight away. Used by `manage create-session` to
// hand a pre-authenticated cookie to a test browser.
func (s *AuthService) CreateSession(ctx context.Context, email string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, _, err := s.users.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving user %s: %w", email, err)
	}
	return s.startSession(user)
}

func (s *AuthService) startSession(user *model.User) (*AuthResult, error) {
	session, err := s.sessions.Generate(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing session for %s: %w", user.Email, err)
	}

	s.logger.Info("user logged in", slog.String("email", user.Email))
	return &AuthResult{User: user, Session: session}, nil
}

// normalizeEmail trims email and checks that it is a bare address.
// "Edith <edith@example.com>" parses, but isn't what a form field should hold.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperror.ValidationFailed("email", InvalidEmailError)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", InvalidEmailError)
	}
	return email, nil
}
