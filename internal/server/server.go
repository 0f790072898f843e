// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and routes.
// It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config ─┐
//	mail.Sender ───┼→ server.New creates:
//	*slog.Logger ──┘    sqlite.DB → ListService / AuthService → handlers → routes
//
// This is the "composition root" pattern. All dependencies are wired in one
// place, rather than scattered across the codebase. The mail.Sender comes in
// from outside so tests can pass a mail.Outbox and read the login links back.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/superlists/internal/auth"
	"github.com/sakif/superlists/internal/config"
	"github.com/sakif/superlists/internal/handler"
	"github.com/sakif/superlists/internal/mail"
	"github.com/sakif/superlists/internal/middleware"
	sqliteRepo "github.com/sakif/superlists/internal/repository/sqlite"
	"github.com/sakif/superlists/internal/service"
	"github.com/sakif/superlists/web"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it during graceful
// shutdown; callers that never Start (tests) call Close themselves.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every layer together.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with the
// modernc.org/sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger, sender mail.Sender) (*Server, error) {
	if cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(sender); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /                            → home page
//	POST /lists/new                   → create a list
//	GET  /lists/{id}/                 → view a list
//	POST /lists/{id}/                 → add an item
//	POST /accounts/send_login_email   → email a login link
//	GET  /accounts/login?token=       → log in from the link
//	GET  /accounts/logout             → log out
//	GET  /api/lists/{id}/items        → items as JSON     (rate limited)
//	POST /api/lists/{id}/items        → add item as JSON  (rate limited)
//	DELETE /api/lists/{id}            → delete a list     (rate limited)
//	GET  /static/*                    → CSS
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers (the rate limiter keys on it)
// 3. Logger: logs each request with timing info and the request ID
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. LoadUser: puts the logged-in user (if any) into the request context
func (s *Server) setupRoutes(sender mail.Sender) error {
	sessions, err := auth.NewSessionService(s.config.Session.Secret, s.config.Session.MaxAge)
	if err != nil {
		return fmt.Errorf("creating session service: %w", err)
	}

	pages, err := handler.NewRenderer(web.Templates, s.logger)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	// DEPENDENCY CHAIN:
	//   s.db implements ListRepository, UserRepository and TokenRepository.
	//   Services receive the interfaces; handlers receive the services.
	listService := service.NewListService(s.db, s.logger)
	authService := service.NewAuthService(s.db, s.db, sessions, sender, s.config.Mail.From, s.logger)

	listHandler := handler.NewListHandler(listService, pages, s.logger)
	authHandler := handler.NewAuthHandler(authService,
		auth.CookieOptions{MaxAge: sessions.MaxAge(), Secure: s.config.Session.Secure},
		s.config.Server.BaseURL,
		s.logger,
	)

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: s.config.RateLimit.RPS,
		Burst:             s.config.RateLimit.Burst,
	})

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.LoadUser(sessions, authService))

	// === Static Files ===
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("opening static files: %w", err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	// === Pages ===
	s.router.Get("/", listHandler.HandleHome)
	s.router.Post("/lists/new", listHandler.HandleNewList)
	s.router.Get("/lists/{id}/", listHandler.HandleViewList)
	s.router.Post("/lists/{id}/", listHandler.HandleAddItem)

	// === Accounts ===
	s.router.Route("/accounts", func(r chi.Router) {
		r.Post("/send_login_email", authHandler.HandleSendLoginEmail)
		r.Get("/login", authHandler.HandleLogin)
		r.Get("/logout", authHandler.HandleLogout)
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Get("/lists/{id}/items", listHandler.HandleAPIListItems)
		r.Post("/lists/{id}/items", listHandler.HandleAPIAddItem)
		r.Delete("/lists/{id}", listHandler.HandleAPIDeleteList)
	})

	return nil
}

// Handler returns the fully wired router, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
