// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the unsubscribe confirmation prompt",
	}
}

// setupCommand handles setup operations for configuration, database and authentication.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "auth",
				Usage: "Store an API token from a token or a browser cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "token",
						Usage: "API bearer token",
					},
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.SetupAuth,
			},
		},
	}
}

// catalogCommand handles the email type catalog.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Email type catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List email types",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "domain",
						Aliases: []string{"d"},
						Usage:   "Only list one domain (reports, announcements, developers, account)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CatalogList,
			},
			{
				Name:   "refresh",
				Usage:  "Invalidate the cached catalog and fetch it again",
				Action: r.CatalogRefresh,
			},
		},
	}
}

// prefsCommand handles reading and changing preferences.
func prefsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "prefs",
		Aliases: []string{"p"},
		Usage:   "Email preference operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show current preferences",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "domain",
						Aliases: []string{"d"},
						Usage:   "Only show one domain",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PrefsShow,
			},
			{
				Name:  "set",
				Usage: "Set one email type's frequency",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "frequency"},
				},
				Flags:  []cli.Flag{yesFlag()},
				Action: r.PrefsSet,
			},
			{
				Name:  "service",
				Usage: "Set the frequency of every optional email type in a domain",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "domain"},
					&cli.StringArg{Name: "frequency"},
				},
				Flags:  []cli.Flag{yesFlag()},
				Action: r.PrefsService,
			},
			{
				Name:  "resend",
				Usage: "Resend the latest issue of an email type",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Resend every subscribed type that supports it",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent requests for --all",
						Value: 3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second for --all",
						Value: 2,
					},
				},
				Action: r.PrefsResend,
			},
			{
				Name:  "unsubscribe",
				Usage: "Unsubscribe with the token from an email link",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Usage:    "Unsubscribe token from the email link",
						Required: true,
					},
					yesFlag(),
				},
				Action: r.PrefsUnsubscribe,
			},
			{
				Name:  "export",
				Usage: "Export preferences to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, markdown, csv, json)",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: preferences-<account>.<ext>)",
					},
				},
				Action: r.PrefsExport,
			},
			{
				Name:  "history",
				Usage: "Show locally recorded preference changes",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of changes",
						Value:   20,
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Only show changes to one email type",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PrefsHistory,
			},
			{
				Name:  "apply",
				Usage: "Apply a JSON snapshot ({\"id\": \"frequency\"}) in one batch",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.PrefsApply,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the Meeting BaaS API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// serveCommand runs the local preferences page.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the email preferences page locally",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default from config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive preference management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for email preferences",
		Action:  r.TUI,
	}
}

// openCommand opens the dashboard preferences page in a browser.
func openCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "Open the email preferences page in a browser",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "domain"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "unsubscribe",
				Usage: "Email type id for an unsubscribe deep link",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Unsubscribe token for the deep link",
			},
			&cli.BoolFlag{
				Name:  "print",
				Usage: "Print the URL instead of opening a browser",
			},
		},
		Action: r.Open,
	}
}
