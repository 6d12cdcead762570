// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func userFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Username or user ID",
		Required: true,
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
			{
				Name:  "config",
				Usage: "Write an example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the configuration file to create",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand starts the web application.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides server.host and server.port",
			},
		},
		Action: r.Serve,
	}
}

// userCommand manages local accounts.
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "user",
		Aliases: []string{"users"},
		Usage:   "Manage accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Register a new account",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "username", Required: true, Usage: "Unique username"},
					&cli.StringFlag{Name: "email", Required: true, Usage: "Unique email address"},
					&cli.StringFlag{Name: "password", Required: true, Usage: "Account password"},
				},
				Action: r.UserCreate,
			},
			{
				Name:  "list",
				Usage: "List accounts",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.UserList,
			},
		},
	}
}

// historyCommand shows or exports a user's downloads.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show a user's downloads, newest first",
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of downloads to show (0 for all)",
				Value: 0,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table, csv, md, txt or json",
				Value:   "table",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// fetchCommand runs one download from the terminal.
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download a URL into storage on behalf of a user",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "url",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			userFlag(),
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Download type: video or audio",
				Value:   "video",
			},
		},
		Action: r.Fetch,
	}
}
