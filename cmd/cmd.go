// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles database initialization and reset.
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
				Name:  "reset",
				Usage: "Drop and recreate all tables (destroys the local mirror)",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Skip confirmation",
					},
				},
				Action: r.SetupReset,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show stored token state per grant",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// pullCommand mirrors the remote account into the local cache.
func pullCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "pull",
		Usage:  "Mirror profile, playlists, library and devices into the local cache",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Pull,
	}
}

// playlistCommand handles cached playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Browse and edit playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached playlists",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show a playlist with pending edits overlaid",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistShow,
			},
			{
				Name:  "export",
				Usage: "Export a cached playlist to CSV, Markdown or plain text",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv, markdown or text",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file or directory path",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:  "edit",
				Usage: "Queue a playlist details change (name, description, visibility)",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "New playlist name",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "New playlist description",
					},
					&cli.StringFlag{
						Name:  "visibility",
						Usage: "New visibility: public or private",
					},
				},
				Action: r.PlaylistEdit,
			},
			{
				Name:  "blacklist",
				Usage: "Queue a local blacklist flag change for a playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Clear the flag instead of setting it",
					},
				},
				Action: r.PlaylistBlacklist,
			},
		},
	}
}

// queueCommand handles the pending change queue
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Inspect and flush the pending change queue",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show queued operations in sequence order",
				Flags:  []cli.Flag{configFlag()},
				Action: r.QueueShow,
			},
			{
				Name:  "add",
				Usage: "Queue adding a track to a playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "playlist",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "uri",
						Usage:    "Track URI (spotify:track:...)",
						Required: true,
					},
				},
				Action: r.QueueAdd,
			},
			{
				Name:  "remove",
				Usage: "Queue removing a track from a playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "playlist",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "uri",
						Usage:    "Track URI (spotify:track:...)",
						Required: true,
					},
				},
				Action: r.QueueRemove,
			},
			{
				Name:  "flush",
				Usage: "Apply queued changes to the remote service",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Flush only this playlist's queue",
					},
				},
				Action: r.QueueFlush,
			},
		},
	}
}

// libraryCommand queues library membership and follow changes.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Queue saved-track and followed-artist changes",
		Commands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Queue saving a track to the library",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Track ID",
						Required: true,
					},
				},
				Action: r.LibrarySave,
			},
			{
				Name:  "unsave",
				Usage: "Queue removing a track from the library",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Track ID",
						Required: true,
					},
				},
				Action: r.LibraryUnsave,
			},
			{
				Name:  "follow",
				Usage: "Queue following an artist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Artist ID",
						Required: true,
					},
				},
				Action: r.LibraryFollow,
			},
			{
				Name:  "unfollow",
				Usage: "Queue unfollowing an artist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Artist ID",
						Required: true,
					},
				},
				Action: r.LibraryUnfollow,
			},
		},
	}
}

// organizeCommand reorders playlists from the local mirror.
func organizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "organize",
		Usage: "Deduplicate and shuffle playlists",
		Commands: []*cli.Command{
			{
				Name:  "shuffle",
				Usage: "Shuffle a playlist and push the new order",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Shuffle strategy: plain or genre",
					},
					&cli.IntFlag{
						Name:  "seed",
						Usage: "Seed for reproducible shuffles (0 uses the clock)",
					},
				},
				Action: r.OrganizeShuffle,
			},
			{
				Name:  "dedupe",
				Usage: "Remove duplicate tracks, keeping first occurrences",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
				},
				Action: r.OrganizeDedupe,
			},
		},
	}
}

// deviceCommand handles playback endpoints.
func deviceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "device",
		Usage: "List devices and transfer playback",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List known playback devices",
				Flags:  []cli.Flag{configFlag()},
				Action: r.DeviceList,
			},
			{
				Name:  "transfer",
				Usage: "Transfer playback to a device",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Device ID",
						Required: true,
					},
				},
				Action: r.DeviceTransfer,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI over the local mirror",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.TUI,
	}
}
