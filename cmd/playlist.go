package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spotmirror/spotmirror/internal/formatter"
	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistList lists cached playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureDatabase(); err != nil {
		return err
	}

	playlists, err := r.cache.Playlists()
	if err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", len(p.TrackIDs))
		r.writePlain("   Visibility: %s\n", shared.VisibilityString(p.Public))
		if p.Blacklisted {
			r.writePlain("   Blacklisted: yes\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// PlaylistShow shows a playlist with pending edits overlaid.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureEngine(); err != nil {
		return err
	}

	view, err := r.engine.FetchView(cmd.String("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(view, cmd.Bool("pretty"))
	}

	export, err := r.resolveExport(view.Playlist)
	if err != nil {
		return err
	}

	r.writePlain("Playlist: %s\n", view.Playlist.Name)
	if view.Playlist.Description != "" {
		r.writePlain("Description: %s\n", view.Playlist.Description)
	}
	r.writePlain("Visibility: %s\n", shared.VisibilityString(view.Playlist.Public))
	r.writePlain("Tracks: %d\n", len(view.Playlist.TrackIDs))
	if len(view.Pending) > 0 {
		r.writePlain("Pending edits: %d (run 'spotmirror queue flush' to apply)\n", len(view.Pending))
	}
	r.writePlain("\n")

	for i, track := range export.Tracks {
		r.writePlain("%d. %s - %s\n", i+1, track.Artist, track.Title)
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
	}

	return nil
}

// PlaylistExport exports a cached playlist to CSV, Markdown or text.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureDatabase(); err != nil {
		return err
	}

	playlist, err := r.cache.Playlist(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}

	export, err := r.resolveExport(*playlist)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	switch cmd.String("format") {
	case "csv":
		result, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Playlist exported to %s\n", result.TracksFile)
		r.writePlain("  Metadata: %s\n", result.MetadataFile)
	case "markdown", "md":
		mdFile, err := formatter.WriteMarkdownExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Playlist exported to %s\n", mdFile)
	case "text", "txt":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Playlist exported to %s\n", path)
	default:
		return fmt.Errorf("%w: unknown format '%s'", shared.ErrInvalidInput, cmd.String("format"))
	}

	r.writePlain("  Playlist: %s\n", export.Playlist.Name)
	r.writePlain("  Tracks: %d\n", len(export.Tracks))
	return nil
}

// PlaylistEdit queues a details change for later flushing.
func (r *Runner) PlaylistEdit(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureEngine(); err != nil {
		return err
	}

	payload := map[string]any{}
	if name := cmd.String("name"); name != "" {
		payload["name"] = name
	}
	if description := cmd.String("description"); description != "" {
		payload["description"] = description
	}
	switch cmd.String("visibility") {
	case "":
	case "public":
		payload["public"] = true
	case "private":
		payload["public"] = false
	default:
		return fmt.Errorf("%w: visibility must be 'public' or 'private'", shared.ErrInvalidInput)
	}

	if len(payload) == 0 {
		return fmt.Errorf("%w: nothing to change", shared.ErrInvalidInput)
	}

	return r.enqueueUpdate(models.EntityPlaylist, cmd.String("id"), payload)
}

// PlaylistBlacklist queues a local-only blacklist flag change.
func (r *Runner) PlaylistBlacklist(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureEngine(); err != nil {
		return err
	}

	return r.enqueueUpdate(models.EntityPlaylist, cmd.String("id"), map[string]any{
		"blacklisted": !cmd.Bool("clear"),
	})
}

// enqueueUpdate queues an update operation carrying a JSON payload.
func (r *Runner) enqueueUpdate(targetType models.EntityType, targetID string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	seq, err := r.engine.EnqueueEdit(models.Operation{
		TargetType: targetType,
		TargetID:   targetID,
		Type:       models.OpUpdate,
		Payload:    string(body),
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Change queued (sequence %d)\n", seq)
	r.writePlain("Run 'spotmirror queue flush' to apply.\n")
	return nil
}

// resolveExport builds a display-ready export for a playlist from the cache.
func (r *Runner) resolveExport(playlist models.Playlist) (*formatter.PlaylistExport, error) {
	cached, err := r.cache.TracksByIDs(playlist.TrackIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	byID := map[string]models.Track{}
	artistIDs := []string{}
	seen := map[string]bool{}
	for _, t := range cached {
		byID[t.ID] = t
		for _, id := range t.ArtistIDs {
			if !seen[id] {
				seen[id] = true
				artistIDs = append(artistIDs, id)
			}
		}
	}

	artists := map[string]models.Artist{}
	if len(artistIDs) > 0 {
		resolved, err := r.cache.Artists(artistIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load artists: %w", err)
		}
		for _, a := range resolved {
			artists[a.ID] = a
		}
	}

	albums := map[string]models.Album{}
	for _, t := range cached {
		if t.AlbumID == "" || albums[t.AlbumID].ID != "" {
			continue
		}
		if al, err := r.cache.Album(t.AlbumID); err == nil {
			albums[al.ID] = *al
		}
	}

	ordered := make([]models.Track, 0, len(playlist.TrackIDs))
	for _, id := range playlist.TrackIDs {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		} else {
			ordered = append(ordered, models.Track{ID: id, Name: id})
		}
	}

	return formatter.BuildExport(playlist, ordered, artists, albums), nil
}
