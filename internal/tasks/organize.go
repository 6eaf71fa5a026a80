package tasks

import (
	"context"
	"fmt"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/organizer"
	"github.com/spotmirror/spotmirror/internal/services"
	"github.com/spotmirror/spotmirror/internal/shared"
)

// Shuffle reorders a playlist with the named strategy and pushes the new
// sequence to the remote service as a full replace. The cached sequence is
// rewritten only after the remote service confirms.
func (e *Engine) Shuffle(ctx context.Context, playlistID, strategyName string, seed int64, progress chan<- ProgressUpdate) error {
	if e.remote == nil {
		return fmt.Errorf("%w: remote service not initialized", shared.ErrServiceUnavailable)
	}

	tracks, playlist, err := e.playlistTracks(ctx, playlistID, progress)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return nil
	}

	strategy := organizer.StrategyByName(strategyName, e.genreOf)
	shuffled := organizer.Organize(tracks, strategy, seed)

	return e.replaceSequence(ctx, playlist, shuffled, progress)
}

// Dedupe removes repeated tracks from a playlist, keeping each track's
// first occurrence, and returns how many entries were dropped. A playlist
// without duplicates makes no remote call.
func (e *Engine) Dedupe(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (int, error) {
	if e.remote == nil {
		return 0, fmt.Errorf("%w: remote service not initialized", shared.ErrServiceUnavailable)
	}

	tracks, playlist, err := e.playlistTracks(ctx, playlistID, progress)
	if err != nil {
		return 0, err
	}

	deduped := organizer.RemoveDuplicates(tracks)
	removed := len(tracks) - len(deduped)
	if removed == 0 {
		return 0, nil
	}

	if err := e.replaceSequence(ctx, playlist, deduped, progress); err != nil {
		return 0, err
	}
	return removed, nil
}

// playlistTracks loads a playlist's tracks, preferring the cache and
// falling back to the remote service for unmirrored playlists.
func (e *Engine) playlistTracks(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) ([]models.Track, *models.Playlist, error) {
	playlist, err := e.cache.Playlist(playlistID)
	if err == nil && len(playlist.TrackIDs) > 0 {
		tracks, err := e.cache.TracksByIDs(playlist.TrackIDs)
		if err != nil {
			return nil, nil, err
		}
		// only a full cache serves as the ordering source
		if len(tracks) == len(playlist.TrackIDs) {
			return tracks, playlist, nil
		}
	}

	e.sendProgress(progress, fetchPlaylistsUpdate(1, 1, playlistID))
	remote, err := e.remote.Playlist(ctx, playlistID)
	if err != nil {
		return nil, nil, err
	}
	tracks, err := e.remote.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, nil, err
	}

	remote.TrackIDs = trackIDs(tracks)
	if err := e.cache.SaveTracks(tracks); err != nil {
		return nil, nil, err
	}
	if err := e.cache.SavePlaylist(*remote); err != nil {
		return nil, nil, err
	}
	return tracks, remote, nil
}

// replaceSequence pushes a full track sequence to the remote service and
// writes it through to the cache on success.
func (e *Engine) replaceSequence(ctx context.Context, playlist *models.Playlist, tracks []models.Track, progress chan<- ProgressUpdate) error {
	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uri, err := services.IDToURI("track", t.ID)
		if err != nil {
			return err
		}
		uris[i] = uri
	}

	e.sendProgress(progress, reorderUpdate(playlist.ID, len(tracks)))
	if err := e.remote.ReplacePlaylistItems(ctx, playlist.ID, uris); err != nil {
		return err
	}

	playlist.TrackIDs = trackIDs(tracks)
	e.sendProgress(progress, writeCacheUpdate("playlist:"+playlist.ID))
	return e.cache.SavePlaylist(*playlist)
}

// genreOf maps a track to its primary genre via the cached artist entry of
// its first credited artist. Unknown artists group under the empty genre.
func (e *Engine) genreOf(t models.Track) string {
	if len(t.ArtistIDs) == 0 {
		return ""
	}
	artist, err := e.cache.Artist(t.ArtistIDs[0])
	if err != nil || len(artist.Genres) == 0 {
		return ""
	}
	return artist.Genres[0]
}

func trackIDs(tracks []models.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
