package main

import (
	"context"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/services"
	"github.com/urfave/cli/v3"
)

// LibrarySave queues saving a track to the library.
func (r *Runner) LibrarySave(ctx context.Context, cmd *cli.Command) error {
	return r.enqueueLibraryEdit(cmd, models.EntityTrack, models.OpAdd)
}

// LibraryUnsave queues removing a track from the library.
func (r *Runner) LibraryUnsave(ctx context.Context, cmd *cli.Command) error {
	return r.enqueueLibraryEdit(cmd, models.EntityTrack, models.OpRemove)
}

// LibraryFollow queues following an artist.
func (r *Runner) LibraryFollow(ctx context.Context, cmd *cli.Command) error {
	return r.enqueueLibraryEdit(cmd, models.EntityArtist, models.OpAdd)
}

// LibraryUnfollow queues unfollowing an artist.
func (r *Runner) LibraryUnfollow(ctx context.Context, cmd *cli.Command) error {
	return r.enqueueLibraryEdit(cmd, models.EntityArtist, models.OpRemove)
}

func (r *Runner) enqueueLibraryEdit(cmd *cli.Command, targetType models.EntityType, opType models.OpType) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureEngine(); err != nil {
		return err
	}

	id := cmd.String("id")
	uri, err := services.IDToURI(string(targetType), id)
	if err != nil {
		return err
	}

	seq, err := r.engine.EnqueueEdit(models.Operation{
		TargetType: targetType,
		TargetID:   id,
		Type:       opType,
		Payload:    uri,
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
