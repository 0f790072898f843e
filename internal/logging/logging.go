// Package logging builds the application's *slog.Logger.
//
// Everything in the app logs through log/slog. Only the handler changes with
// the configured format:
//
//	text   → slog.TextHandler   key=value lines, the default
//	json   → slog.JSONHandler   one JSON object per line, for log shippers
//	pretty → charmbracelet/log  coloured, aligned output for a terminal
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// Options selects the level and output format.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json, pretty
}

// New creates a logger writing to w (os.Stderr when nil).
func New(opts Options, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		return nil, fmt.Errorf("logging: invalid level %q", opts.Level)
	}

	switch opts.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	case "pretty":
		// *log.Logger implements slog.Handler.
		handler := log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Level:           log.Level(level),
		})
		return slog.New(handler), nil
	}
	return nil, fmt.Errorf("logging: invalid format %q", opts.Format)
}
