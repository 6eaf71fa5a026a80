package repositories

import (
	"errors"
	"testing"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/shared"
)

func TestCacheTracks(t *testing.T) {
	t.Run("Save And Load Round Trip", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		track := models.Track{
			ID:         "track-1",
			Name:       "Song",
			DurationMS: 215000,
			AlbumID:    "album-1",
			ArtistIDs:  []string{"artist-1", "artist-2"},
			Popularity: 64,
			ExternalID: "USUM71703861",
			Features:   &models.AudioFeatures{Danceability: 0.7, Tempo: 120},
		}

		if err := repo.SaveTrack(track); err != nil {
			t.Fatalf("failed to save track: %v", err)
		}

		got, err := repo.Track("track-1")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		if got.Name != track.Name || got.DurationMS != track.DurationMS {
			t.Errorf("metadata mismatch: %+v", got)
		}
		if len(got.ArtistIDs) != 2 || got.ArtistIDs[0] != "artist-1" {
			t.Errorf("expected credited artist order preserved, got %v", got.ArtistIDs)
		}
		if got.Features == nil || got.Features.Danceability != 0.7 {
			t.Errorf("expected audio features round trip, got %+v", got.Features)
		}
	})

	t.Run("Save Replaces Existing Row", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		if err := repo.SaveTrack(models.Track{ID: "track-1", Name: "Old"}); err != nil {
			t.Fatalf("failed to save track: %v", err)
		}
		if err := repo.SaveTrack(models.Track{ID: "track-1", Name: "New"}); err != nil {
			t.Fatalf("failed to resave track: %v", err)
		}

		got, err := repo.Track("track-1")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		if got.Name != "New" {
			t.Errorf("expected refreshed state, got %q", got.Name)
		}
	})

	t.Run("Missing Track Is Not Found", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		_, err := repo.Track("absent")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not-found error, got %v", err)
		}
	})

	t.Run("TracksByIDs Skips Unknown", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		if err := repo.SaveTracks([]models.Track{
			{ID: "track-1", Name: "A"},
			{ID: "track-2", Name: "B"},
		}); err != nil {
			t.Fatalf("failed to save tracks: %v", err)
		}

		tracks, err := repo.TracksByIDs([]string{"track-2", "absent", "track-1"})
		if err != nil {
			t.Fatalf("failed to load tracks: %v", err)
		}
		if len(tracks) != 2 || tracks[0].ID != "track-2" || tracks[1].ID != "track-1" {
			t.Errorf("expected input order without unknowns, got %+v", tracks)
		}
	})
}

func TestCachePlaylists(t *testing.T) {
	t.Run("Track Sequence Round Trip", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		playlist := models.Playlist{
			ID:         "playlist-1",
			Name:       "Mix",
			OwnerID:    "user-1",
			TrackIDs:   []string{"t3", "t1", "t2"},
			SnapshotID: "snap-1",
		}
		if err := repo.SavePlaylist(playlist); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		got, err := repo.Playlist("playlist-1")
		if err != nil {
			t.Fatalf("failed to load playlist: %v", err)
		}
		if got.SnapshotID != "snap-1" {
			t.Errorf("expected snapshot id persisted, got %q", got.SnapshotID)
		}
		if len(got.TrackIDs) != 3 || got.TrackIDs[0] != "t3" || got.TrackIDs[1] != "t1" || got.TrackIDs[2] != "t2" {
			t.Errorf("expected position order preserved, got %v", got.TrackIDs)
		}
	})

	t.Run("Resave Replaces Sequence Wholesale", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		if err := repo.SavePlaylist(models.Playlist{ID: "playlist-1", Name: "Mix", TrackIDs: []string{"t1", "t2", "t3"}}); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}
		if err := repo.SavePlaylist(models.Playlist{ID: "playlist-1", Name: "Mix", TrackIDs: []string{"t2"}}); err != nil {
			t.Fatalf("failed to resave playlist: %v", err)
		}

		ids, err := repo.PlaylistTrackIDs("playlist-1")
		if err != nil {
			t.Fatalf("failed to load sequence: %v", err)
		}
		if len(ids) != 1 || ids[0] != "t2" {
			t.Errorf("expected stale positions removed, got %v", ids)
		}
	})

	t.Run("Empty Playlist Has No Tracks", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		if err := repo.SavePlaylist(models.Playlist{ID: "playlist-1", Name: "Empty"}); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		got, err := repo.Playlist("playlist-1")
		if err != nil {
			t.Fatalf("failed to load playlist: %v", err)
		}
		if len(got.TrackIDs) != 0 {
			t.Errorf("expected no tracks, got %v", got.TrackIDs)
		}
	})
}

func TestCacheArtists(t *testing.T) {
	repo := NewCacheRepository(setupTestStore(t))

	if err := repo.SaveArtists([]models.Artist{
		{ID: "artist-1", Name: "One", Genres: []string{"indie rock", "shoegaze"}},
		{ID: "artist-2", Name: "Two", Genres: []string{"techno"}},
	}); err != nil {
		t.Fatalf("failed to save artists: %v", err)
	}

	artists, err := repo.Artists([]string{"artist-1", "artist-2", "absent"})
	if err != nil {
		t.Fatalf("failed to load artists: %v", err)
	}
	if len(artists) != 2 {
		t.Fatalf("expected 2 artists, got %d", len(artists))
	}
	if len(artists[0].Genres) != 2 || artists[0].Genres[0] != "indie rock" {
		t.Errorf("expected genre list round trip, got %v", artists[0].Genres)
	}
}

func TestCacheDevices(t *testing.T) {
	repo := NewCacheRepository(setupTestStore(t))

	if err := repo.SaveDevices([]models.Device{
		{ID: "dev-1", Name: "Speaker", Type: "speaker", Active: true},
		{ID: "dev-2", Name: "Laptop", Type: "computer"},
	}); err != nil {
		t.Fatalf("failed to save devices: %v", err)
	}

	// a later snapshot replaces the whole list
	if err := repo.SaveDevices([]models.Device{
		{ID: "dev-2", Name: "Laptop", Type: "computer", Active: true},
	}); err != nil {
		t.Fatalf("failed to resave devices: %v", err)
	}

	devices, err := repo.Devices()
	if err != nil {
		t.Fatalf("failed to load devices: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "dev-2" || !devices[0].Active {
		t.Errorf("expected stale devices removed, got %+v", devices)
	}
}

func TestCacheBlacklist(t *testing.T) {
	t.Run("Toggles Cached Entity", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		if err := repo.SaveTrack(models.Track{ID: "track-1", Name: "Song"}); err != nil {
			t.Fatalf("failed to save track: %v", err)
		}

		if err := repo.SetBlacklisted(models.EntityTrack, "track-1", true); err != nil {
			t.Fatalf("failed to blacklist: %v", err)
		}

		got, err := repo.Track("track-1")
		if err != nil {
			t.Fatalf("failed to load track: %v", err)
		}
		if !got.Blacklisted {
			t.Error("expected track blacklisted")
		}
	})

	t.Run("Unknown Entity Is Not Found", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		err := repo.SetBlacklisted(models.EntityTrack, "absent", true)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not-found error, got %v", err)
		}
	})

	t.Run("Rejects Unflaggable Entity Types", func(t *testing.T) {
		repo := NewCacheRepository(setupTestStore(t))

		err := repo.SetBlacklisted(models.EntityDevice, "dev-1", true)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected input error, got %v", err)
		}
	})
}
