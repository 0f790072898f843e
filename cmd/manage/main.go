// Command manage runs one-off administration tasks against the Superlists
// database:
//
//	manage create-session edith@example.com   # print a ready-made session cookie
//	manage flush --yes                         # empty every table
//
// It reads the same superlists.toml / SUPERLISTS_* settings as the server, so
// run it with the server's environment. create-session needs the server's
// real session.secret, otherwise the printed cookie won't be accepted.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := newApp(os.Stdout)
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("manage failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	r := &runner{output: out}
	return &cli.Command{
		Name:  "manage",
		Usage: "Superlists administration commands",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the SQLite database (overrides config)",
			},
		},
		Commands: r.commands(),
	}
}
