package tasks

import (
	"context"
	"fmt"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/shared"
)

// PullResult summarizes a library mirror run.
type PullResult struct {
	User      *models.User
	TopGenres []string
	Playlists int
	Tracks    int
	Artists   int
	Saved     int
	Devices   int
}

// Pull mirrors the remote library into the local cache: profile, playlists
// with their full track sequences, saved tracks, audio features, the
// credited artists of everything fetched, and the device list. Each entity
// is cached as soon as
// the remote service returns it, so a cancelled pull keeps what it mirrored.
func (e *Engine) Pull(ctx context.Context, progress chan<- ProgressUpdate) (*PullResult, error) {
	if e.remote == nil {
		return nil, fmt.Errorf("%w: remote service not initialized", shared.ErrServiceUnavailable)
	}

	result := &PullResult{}
	artistIDs := map[string]bool{}

	e.sendProgress(progress, fetchProfileUpdate())
	user, err := e.remote.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SaveUser(*user); err != nil {
		return nil, err
	}
	result.User = user

	e.sendProgress(progress, fetchPlaylistsUpdate(0, 0, ""))
	playlists, err := e.remote.UserPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	seenTracks := map[string]bool{}
	for i, playlist := range playlists {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.sendProgress(progress, fetchPlaylistsUpdate(i+1, len(playlists), playlist.Name))

		tracks, err := e.remote.PlaylistTracks(ctx, playlist.ID)
		if err != nil {
			return result, err
		}
		if err := e.cache.SaveTracks(tracks); err != nil {
			return result, err
		}

		playlist.TrackIDs = trackIDs(tracks)
		if err := e.cache.SavePlaylist(playlist); err != nil {
			return result, err
		}
		result.Playlists++

		for _, t := range tracks {
			if !seenTracks[t.ID] {
				seenTracks[t.ID] = true
				result.Tracks++
			}
			for _, id := range t.ArtistIDs {
				artistIDs[id] = true
			}
		}
	}

	e.sendProgress(progress, fetchLibraryUpdate())
	saved, err := e.remote.SavedTracks(ctx)
	if err != nil {
		return result, err
	}
	if err := e.cache.SaveTracks(saved); err != nil {
		return result, err
	}
	result.Saved = len(saved)
	for _, t := range saved {
		seenTracks[t.ID] = true
		for _, id := range t.ArtistIDs {
			artistIDs[id] = true
		}
	}

	if len(seenTracks) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.sendProgress(progress, fetchFeaturesUpdate(len(seenTracks)))

		ids := make([]string, 0, len(seenTracks))
		for id := range seenTracks {
			ids = append(ids, id)
		}
		features, err := e.remote.AudioFeatures(ctx, ids)
		if err != nil {
			// the mirror is still useful without feature vectors
			e.logger.Warn("audio features unavailable", "error", err)
		} else if err := e.cache.SaveTrackFeatures(features); err != nil {
			return result, err
		}
	}

	if len(artistIDs) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.sendProgress(progress, fetchArtistsUpdate(len(artistIDs)))

		ids := make([]string, 0, len(artistIDs))
		for id := range artistIDs {
			ids = append(ids, id)
		}
		artists, err := e.remote.SeveralArtists(ctx, ids)
		if err != nil {
			return result, err
		}
		if err := e.cache.SaveArtists(artists); err != nil {
			return result, err
		}
		result.Artists = len(artists)
		result.TopGenres = user.TopGenres(artists, 5)
	}

	e.sendProgress(progress, fetchDevicesUpdate())
	devices, err := e.remote.Devices(ctx)
	if err != nil {
		return result, err
	}
	if err := e.cache.SaveDevices(devices); err != nil {
		return result, err
	}
	result.Devices = len(devices)

	e.logger.Info("library mirrored",
		"playlists", result.Playlists,
		"tracks", result.Tracks,
		"artists", result.Artists,
		"saved", result.Saved,
		"devices", result.Devices,
	)
	return result, nil
}
