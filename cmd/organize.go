package main

import (
	"context"

	"github.com/spotmirror/spotmirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// OrganizeShuffle shuffles a playlist and pushes the new order.
func (r *Runner) OrganizeShuffle(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureEngine(); err != nil {
		return err
	}

	strategy := cmd.String("strategy")
	if strategy == "" {
		strategy = r.config.Organizer.Strategy
	}
	seed := int64(cmd.Int("seed"))
	if seed == 0 {
		seed = r.config.Organizer.Seed
	}

	playlistID := cmd.String("id")
	r.logger.Info("shuffling playlist", "playlist", playlistID, "strategy", strategy)

	progressCh := make(chan tasks.ProgressUpdate, 10)
	go func() {
		for update := range progressCh {
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	err := r.engine.Shuffle(ctx, playlistID, strategy, seed, progressCh)
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("✓ Playlist reordered\n")
	return nil
}

// OrganizeDedupe removes duplicate tracks, keeping first occurrences.
func (r *Runner) OrganizeDedupe(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureEngine(); err != nil {
		return err
	}

	playlistID := cmd.String("id")
	r.logger.Info("deduplicating playlist", "playlist", playlistID)

	progressCh := make(chan tasks.ProgressUpdate, 10)
	go func() {
		for update := range progressCh {
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	removed, err := r.engine.Dedupe(ctx, playlistID, progressCh)
	close(progressCh)

	if err != nil {
		return err
	}

	if removed == 0 {
		r.writePlain("✓ No duplicates found\n")
		return nil
	}

	r.writePlain("✓ Removed %d duplicate tracks\n", removed)
	return nil
}
