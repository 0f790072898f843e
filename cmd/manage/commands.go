package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/sakif/superlists/internal/auth"
	"github.com/sakif/superlists/internal/config"
	"github.com/sakif/superlists/internal/logging"
	"github.com/sakif/superlists/internal/mail"
	"github.com/sakif/superlists/internal/repository/sqlite"
	"github.com/sakif/superlists/internal/service"
)

// runner holds what every command needs. Output goes to an io.Writer so
// tests can capture it.
type runner struct {
	output io.Writer
}

func (r *runner) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "create-session",
			Usage:     "Create (if needed) a user and print a session cookie value for them",
			ArgsUsage: "EMAIL",
			Action:    r.CreateSession,
		},
		{
			Name:  "flush",
			Usage: "Delete all lists, items, tokens and users",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "yes",
					Usage: "Confirm that every row should be deleted",
				},
			},
			Action: r.Flush,
		},
	}
}

// CreateSession logs a user in without an email round trip. The printed
// value goes in a "sessionid" cookie.
func (r *runner) CreateSession(ctx context.Context, cmd *cli.Command) error {
	email := cmd.Args().First()
	if email == "" {
		return errors.New("create-session: EMAIL is required")
	}

	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}
	if cfg.SecretGenerated {
		return errors.New("create-session: session.secret is not configured; the server would reject this session")
	}

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := auth.NewSessionService(cfg.Session.Secret, cfg.Session.MaxAge)
	if err != nil {
		return err
	}
	svc := service.NewAuthService(db, db, sessions, mail.NewLogSender(logger), cfg.Mail.From, logger)

	result, err := svc.CreateSession(ctx, email)
	if err != nil {
		return fmt.Errorf("create-session: %w", err)
	}

	logger.Info("session created", slog.String("email", result.User.Email))
	_, err = fmt.Fprintln(r.output, result.Session)
	return err
}

// Flush empties the database but keeps the schema.
func (r *runner) Flush(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return errors.New("flush: refusing to delete everything without --yes")
	}

	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Flush(ctx); err != nil {
		return err
	}

	logger.Info("database flushed", slog.String("database", cfg.Database.Path))
	_, err = fmt.Fprintf(r.output, "Flushed %s\n", cfg.Database.Path)
	return err
}

// setup loads the shared configuration, letting --config and --db
// override it, and builds a logger that writes to stderr.
func (r *runner) setup(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	var args []string
	if path := cmd.String("config"); path != "" {
		args = append(args, "--config", path)
	}
	if db := cmd.String("db"); db != "" {
		args = append(args, "--db", db)
	}

	cfg, err := config.Load(args)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}, nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
