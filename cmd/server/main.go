// Package main is the entry point for the Superlists web server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (config.Load merges file, env vars and flags)
// 2. Create dependencies (logger, mail sender)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// This project has two: cmd/server (this one) and cmd/manage (admin commands).
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/superlists/internal/config"
	"github.com/sakif/superlists/internal/logging"
	"github.com/sakif/superlists/internal/mail"
	"github.com/sakif/superlists/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Run with --help to see the flags. Every setting can also come from
	// superlists.toml or a SUPERLISTS_* environment variable.
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stdout)
	if err != nil {
		slog.Error("failed to create logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if cfg.SecretGenerated {
		logger.Warn("session.secret not set, using a random one; sessions will not survive a restart",
			slog.String("env", config.EnvPrefix+"_SESSION_SECRET"),
		)
	}

	// === 3. MAIL ===
	// Without an SMTP host, login emails are written to the log. Handy in
	// development: copy the link from the terminal.
	var sender mail.Sender
	if cfg.Mail.Host != "" {
		sender, err = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
		}, logger)
		if err != nil {
			logger.Error("failed to configure SMTP", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		logger.Warn("mail.host not set, login emails will only be logged")
		sender = mail.NewLogSender(logger)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger, sender)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
