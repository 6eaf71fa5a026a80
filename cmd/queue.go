package main

import (
	"context"
	"fmt"

	"github.com/spotmirror/spotmirror/internal/formatter"
	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// QueueShow lists queued operations in sequence order.
func (r *Runner) QueueShow(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureDatabase(); err != nil {
		return err
	}

	ops, err := r.queue.Operations(models.StatusPending, models.StatusInFlight, models.StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to load queue: %w", err)
	}

	return r.writePlain("%s", formatter.FormatQueue(ops))
}

// QueueAdd queues adding a track to a playlist.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	return r.enqueueItemEdit(cmd, models.OpAdd)
}

// QueueRemove queues removing a track from a playlist.
func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	return r.enqueueItemEdit(cmd, models.OpRemove)
}

func (r *Runner) enqueueItemEdit(cmd *cli.Command, opType models.OpType) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureEngine(); err != nil {
		return err
	}

	seq, err := r.engine.EnqueueEdit(models.Operation{
		TargetType: models.EntityPlaylist,
		TargetID:   cmd.String("playlist"),
		Type:       opType,
		Payload:    cmd.String("uri"),
	})
	if err != nil {
		return err
	}

	if seq == 0 {
		r.writePlain("✓ Cancelled the opposing queued change instead\n")
		return nil
	}

	r.writePlain("✓ Change queued (sequence %d)\n", seq)
	return nil
}

// QueueFlush applies queued changes to the remote service.
func (r *Runner) QueueFlush(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureEngine(); err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	var outcomes []tasks.FlushOutcome
	var err error
	if playlistID := cmd.String("playlist"); playlistID != "" {
		var outcome *tasks.FlushOutcome
		outcome, err = r.engine.FlushTarget(ctx, models.EntityPlaylist, playlistID, progressCh)
		if outcome != nil {
			outcomes = []tasks.FlushOutcome{*outcome}
		}
	} else {
		outcomes, err = r.engine.Flush(ctx, progressCh)
	}
	close(progressCh)

	if err != nil {
		return err
	}

	var applied, failed int
	for _, outcome := range outcomes {
		applied += len(outcome.Applied)
		failed += len(outcome.Failed)
	}

	r.writePlain("\n")
	r.writePlainHeader("Flush Complete")
	r.writePlain("Applied: %d\n", applied)
	r.writePlain("Failed: %d\n", failed)

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			r.writePlain("  ✗ %s %s: %v\n", outcome.TargetType, outcome.TargetID, outcome.Err)
		}
		if outcome.Skipped {
			r.writePlain("  ⚠ %s %s: already flushing\n", outcome.TargetType, outcome.TargetID)
		}
	}

	return nil
}
