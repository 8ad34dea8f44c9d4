// Command assistant is a Vietnamese chat expense tracker.
//
// Usage:
//
//	assistant chat
//	assistant say "trưa ăn phở 35k"
//	assistant report --days 7
//	assistant model set llama3
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	app := &cli.App{
		Name:    "assistant",
		Usage:   "Track expenses by chatting in Vietnamese",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database path (overrides ASSISTANT_DB_PATH)",
			},
			&cli.BoolFlag{
				Name:  "memory",
				Usage: "Keep transactions in memory only",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Registered model to use for this run (overrides app_config.json)",
			},
		},
		Commands: []*cli.Command{
			chatCommand(),
			sayCommand(),
			reportCommand(),
			recentCommand(),
			balanceCommand(),
			exportCommand(),
			modelCommand(),
			statusCommand(),
			evalCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
