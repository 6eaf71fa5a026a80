package main

import (
	"context"
	"strings"

	"github.com/spotmirror/spotmirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Pull mirrors the remote account into the local cache.
func (r *Runner) Pull(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureEngine(); err != nil {
		return err
	}

	r.writePlain("Mirroring account into %s...\n\n", r.config.Database.Path)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchProfile, tasks.FetchDevices, tasks.FetchLibrary, tasks.FetchFeatures, tasks.FetchArtists:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.FetchPlaylists, tasks.FetchTracks:
				if update.Total > 0 {
					r.writePlain("   %s (%d/%d)\n", update.Message, update.Step, update.Total)
				} else {
					r.writePlain("📥 %s\n", update.Message)
				}
			}
		}
	}()

	result, err := r.engine.Pull(ctx, progressCh)
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Pull Complete")
	r.writePlain("Profile: %s\n", result.User.DisplayName)
	if len(result.TopGenres) > 0 {
		r.writePlain("Top genres: %s\n", strings.Join(result.TopGenres, ", "))
	}
	r.writePlain("Playlists: %d\n", result.Playlists)
	r.writePlain("Tracks cached: %d\n", result.Tracks)
	r.writePlain("Artists cached: %d\n", result.Artists)
	r.writePlain("Saved tracks: %d\n", result.Saved)
	r.writePlain("Devices: %d\n", result.Devices)

	return nil
}
