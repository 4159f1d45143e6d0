// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// queryFlags describe the page to request.
func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"q"},
			Usage:   "Free-text search term",
		},
		&cli.StringSliceFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Column filter as key=value (repeatable)",
		},
		&cli.StringFlag{
			Name:  "from",
			Usage: "Start date (YYYY-MM-DD or RFC 3339)",
		},
		&cli.StringFlag{
			Name:  "to",
			Usage: "End date, inclusive (YYYY-MM-DD or RFC 3339)",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Sort key",
		},
		&cli.BoolFlag{
			Name:  "desc",
			Usage: "Sort descending",
		},
		&cli.IntFlag{
			Name:  "page",
			Usage: "Page number",
			Value: 1,
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Page size (default: view.page_size)",
		},
	}
}

// setupCommand handles setup operations for configuration and the sandbox database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Create config.toml, optionally taking the API root and token from a cURL command",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "from-curl",
						Usage: "Path to a file holding a request copied from browser DevTools (Copy as cURL)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the sandbox database and manage migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "action",
						Usage: "One of migrate, status or rollback",
						Value: "migrate",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// fetchCommand prints one page of a collection.
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch one page of a collection",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "resource"},
		},
		Flags: append(queryFlags(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: table, csv, markdown or json",
				Value: "table",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout (format inferred from the extension)",
			},
		),
		Action: r.Fetch,
	}
}

// watchCommand follows a collection headlessly.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Fetch a page and print every live update reconciled into it",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "resource"},
		},
		Flags: append(queryFlags(),
			&cli.DurationFlag{
				Name:  "for",
				Usage: "Stop after this long (default: until interrupted)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print updates as JSON lines",
			},
		),
		Action: r.Watch,
	}
}

// tuiCommand returns the top-level TUI command for browsing a collection.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse a collection interactively",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "resource"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Page size (default: view.page_size)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log destination while the screen is active",
				Value: "./tmp/hsx-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// bulkCommand applies one action to many records.
func bulkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "bulk",
		Usage:     "Apply a bulk action (delete, activate, deactivate, approve, reject, ...) to records",
		ArgsUsage: "<resource> <action> <id>...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Identifiers per request",
				Value: 50,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent requests",
				Value: 2,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Requests per second",
				Value: 5,
			},
		},
		Action: r.Bulk,
	}
}

// sandboxCommand runs the development backend.
func sandboxCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sandbox",
		Usage: "Local development backend implementing the REST and push contracts",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve every configured resource from SQLite",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default: server.host:server.port)",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the resource index in a browser",
					},
				},
				Action: r.SandboxServe,
			},
			{
				Name:  "emit",
				Usage: "Generate synthetic records and updates against a running sandbox",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "resource"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of writes",
						Value:   10,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Writes per second",
						Value: 2,
					},
					&cli.FloatFlag{
						Name:  "update-ratio",
						Usage: "Share of writes that toggle an existing record instead of creating one",
						Value: 0.3,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Give up after this long",
						Value: time.Minute,
					},
				},
				Action: r.SandboxEmit,
			},
		},
	}
}
