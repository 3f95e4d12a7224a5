// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reelx/internal/formatter"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func pageFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "page",
		Usage: "Popular page to look the movie up on when it is not saved yet",
		Value: 1,
	}
}

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles account operations against the identity backend
func authCommand(r *Runner) *cli.Command {
	credentials := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email (prompted when omitted)",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password (read from stdin when omitted)",
			},
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the signed-in account",
		Commands: []*cli.Command{
			{
				Name:   "signin",
				Usage:  "Sign in with email and password",
				Flags:  credentials(),
				Action: r.AuthSignIn,
			},
			{
				Name:   "signup",
				Usage:  "Create an account and sign in",
				Flags:  credentials(),
				Action: r.AuthSignUp,
			},
			{
				Name:   "signout",
				Usage:  "Sign out and clear session data",
				Action: r.AuthSignOut,
			},
			{
				Name:   "status",
				Usage:  "Show the current session",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// moviesCommand handles catalog browsing
func moviesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "movies",
		Aliases: []string{"m"},
		Usage:   "Browse the movie catalog",
		Commands: []*cli.Command{
			{
				Name:  "popular",
				Usage: "List popular movies with trailers resolved",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent trailer lookups", Value: 4},
					jsonFlag(),
				},
				Action: r.MoviesPopular,
			},
			{
				Name:  "trailer",
				Usage: "Print or open the trailer for a movie",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "open", Usage: "Open the trailer in the browser"},
				},
				Action: r.MoviesTrailer,
			},
		},
	}
}

// watchlistCommand handles watchlist operations for the current scope
func watchlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watchlist",
		Aliases: []string{"wl"},
		Usage:   "Manage the watchlist (per account, or shared when signed out)",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show the watchlist",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.WatchlistList,
			},
			{
				Name:  "toggle",
				Usage: "Add a movie if absent, remove it if present",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{pageFlag()},
				Action: r.WatchlistToggle,
			},
			{
				Name:  "remove",
				Usage: "Remove a movie",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.WatchlistRemove,
			},
		},
	}
}

// collectionsCommand handles the signed-in user's named collections
func collectionsCommand(r *Runner) *cli.Command {
	nameArg := func() cli.Argument { return &cli.StringArg{Name: "name"} }
	idArg := func() cli.Argument { return &cli.StringArg{Name: "id"} }

	return &cli.Command{
		Name:    "collections",
		Aliases: []string{"col"},
		Usage:   "Manage Favorites, To Watch and Watched (requires sign-in)",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "Show all collections or a single one",
				Arguments: []cli.Argument{nameArg()},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.CollectionsList,
			},
			{
				Name:      "add",
				Usage:     "Add a movie to a collection",
				Arguments: []cli.Argument{nameArg(), idArg()},
				Flags:     []cli.Flag{pageFlag()},
				Action:    r.CollectionsAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove a movie from a collection",
				Arguments: []cli.Argument{nameArg(), idArg()},
				Action:    r.CollectionsRemove,
			},
		},
	}
}

// exportCommand writes saved lists to disk
func exportCommand(r *Runner) *cli.Command {
	flags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   fmt.Sprintf("Export format (%s)", strings.Join(formatter.Formats, ", ")),
				Value:   formatter.FormatJSON,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: reelx_export_{timestamp})",
			},
			&cli.BoolFlag{
				Name:  "posters",
				Usage: "Download posters (markdown format only)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent list exports",
				Value: 3,
			},
			&cli.FloatFlag{
				Name:  "rate-limit",
				Usage: "Poster downloads per second",
				Value: 5,
			},
		}
	}

	return &cli.Command{
		Name:  "export",
		Usage: "Export saved lists to files",
		Commands: []*cli.Command{
			{
				Name:   "watchlist",
				Usage:  "Export the watchlist",
				Flags:  flags(),
				Action: r.ExportWatchlist,
			},
			{
				Name:   "collections",
				Usage:  "Export every collection (requires sign-in)",
				Flags:  flags(),
				Action: r.ExportCollections,
			},
		},
	}
}

// settingsCommand handles local preferences
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Local preferences",
		Commands: []*cli.Command{
			{
				Name:  "username",
				Usage: "Show or set the display name used in the greeting",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "clear", Usage: "Remove the stored name"},
				},
				Action: r.SettingsUsername,
			},
		},
	}
}

// apiCommand handles direct catalog API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the catalog API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the catalog API, prints the response",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive movie browser",
		Action:  r.TUI,
	}
}
