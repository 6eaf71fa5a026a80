package tasks

import (
	"context"
	"testing"

	"github.com/spotmirror/spotmirror/internal/models"
	tu "github.com/spotmirror/spotmirror/internal/testing"
)

func seedPlaylist(t *testing.T, engine *Engine, playlistID string, trackIDs []string) {
	t.Helper()

	tracks := make([]models.Track, 0, len(trackIDs))
	seen := map[string]bool{}
	for _, id := range trackIDs {
		if !seen[id] {
			seen[id] = true
			tracks = append(tracks, models.Track{ID: id, Name: "Track " + id})
		}
	}
	if err := engine.cache.SaveTracks(tracks); err != nil {
		t.Fatalf("failed to seed tracks: %v", err)
	}
	if err := engine.cache.SavePlaylist(models.Playlist{ID: playlistID, Name: "Mix", TrackIDs: trackIDs}); err != nil {
		t.Fatalf("failed to seed playlist: %v", err)
	}
}

func TestDedupe(t *testing.T) {
	ctx := context.Background()
	playlistID := testID(900)

	t.Run("Removes Repeats And Replaces Remotely", func(t *testing.T) {
		var replaced []string
		remote := &tu.MockService{
			ReplacePlaylistItemsFunc: func(ctx context.Context, id string, uris []string) error {
				replaced = uris
				return nil
			},
		}
		engine, cache, _ := setupEngine(t, remote)
		seedPlaylist(t, engine, playlistID, []string{testID(1), testID(2), testID(1), testID(3), testID(2)})

		removed, err := engine.Dedupe(ctx, playlistID, nil)
		if err != nil {
			t.Fatalf("dedupe failed: %v", err)
		}
		if removed != 2 {
			t.Errorf("expected 2 removals, got %d", removed)
		}

		want := []string{testURI(1), testURI(2), testURI(3)}
		if len(replaced) != len(want) {
			t.Fatalf("expected %v, got %v", want, replaced)
		}
		for i := range want {
			if replaced[i] != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], replaced[i])
			}
		}

		ids, err := cache.PlaylistTrackIDs(playlistID)
		if err != nil {
			t.Fatalf("failed to load cache: %v", err)
		}
		if len(ids) != 3 || ids[0] != testID(1) || ids[1] != testID(2) || ids[2] != testID(3) {
			t.Errorf("expected deduped sequence cached, got %v", ids)
		}
	})

	t.Run("No Duplicates Makes No Remote Call", func(t *testing.T) {
		remote := &tu.MockService{}
		engine, _, _ := setupEngine(t, remote)
		seedPlaylist(t, engine, playlistID, []string{testID(1), testID(2)})

		removed, err := engine.Dedupe(ctx, playlistID, nil)
		if err != nil {
			t.Fatalf("dedupe failed: %v", err)
		}
		if removed != 0 {
			t.Errorf("expected no removals, got %d", removed)
		}
		if len(remote.Calls) != 0 {
			t.Errorf("expected no remote calls, got %v", remote.Calls)
		}
	})
}

func TestShuffle(t *testing.T) {
	ctx := context.Background()
	playlistID := testID(900)

	t.Run("Replaces With A Permutation", func(t *testing.T) {
		var replaced []string
		remote := &tu.MockService{
			ReplacePlaylistItemsFunc: func(ctx context.Context, id string, uris []string) error {
				replaced = uris
				return nil
			},
		}
		engine, cache, _ := setupEngine(t, remote)

		original := []string{testID(1), testID(2), testID(3), testID(4), testID(5)}
		seedPlaylist(t, engine, playlistID, original)

		if err := engine.Shuffle(ctx, playlistID, "plain", 42, nil); err != nil {
			t.Fatalf("shuffle failed: %v", err)
		}

		if len(replaced) != len(original) {
			t.Fatalf("expected %d URIs, got %d", len(original), len(replaced))
		}
		seen := map[string]bool{}
		for _, uri := range replaced {
			if seen[uri] {
				t.Errorf("duplicate URI in shuffle output: %s", uri)
			}
			seen[uri] = true
		}
		for i := 1; i <= 5; i++ {
			if !seen[testURI(i)] {
				t.Errorf("missing track %s in shuffle output", testID(i))
			}
		}

		ids, err := cache.PlaylistTrackIDs(playlistID)
		if err != nil {
			t.Fatalf("failed to load cache: %v", err)
		}
		if len(ids) != 5 {
			t.Errorf("expected cached sequence rewritten, got %v", ids)
		}
	})

	t.Run("Same Seed Gives Same Order", func(t *testing.T) {
		run := func() []string {
			var replaced []string
			remote := &tu.MockService{
				ReplacePlaylistItemsFunc: func(ctx context.Context, id string, uris []string) error {
					replaced = uris
					return nil
				},
			}
			engine, _, _ := setupEngine(t, remote)
			seedPlaylist(t, engine, playlistID, []string{testID(1), testID(2), testID(3), testID(4), testID(5)})

			if err := engine.Shuffle(ctx, playlistID, "plain", 7, nil); err != nil {
				t.Fatalf("shuffle failed: %v", err)
			}
			return replaced
		}

		first := run()
		second := run()
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("seeded shuffle not deterministic: %v vs %v", first, second)
			}
		}
	})

	t.Run("Unmirrored Playlist Fetched From Remote", func(t *testing.T) {
		remoteTracks := []models.Track{
			{ID: testID(1), Name: "A"},
			{ID: testID(2), Name: "B"},
		}
		remote := &tu.MockService{
			PlaylistFunc: func(ctx context.Context, id string) (*models.Playlist, error) {
				return &models.Playlist{ID: id, Name: "Remote Mix"}, nil
			},
			PlaylistTracksFunc: func(ctx context.Context, id string) ([]models.Track, error) {
				return remoteTracks, nil
			},
		}
		engine, cache, _ := setupEngine(t, remote)

		if err := engine.Shuffle(ctx, playlistID, "plain", 1, nil); err != nil {
			t.Fatalf("shuffle failed: %v", err)
		}

		// the remote fetch seeded the cache as a side effect
		playlist, err := cache.Playlist(playlistID)
		if err != nil {
			t.Fatalf("expected playlist mirrored, got %v", err)
		}
		if len(playlist.TrackIDs) != 2 {
			t.Errorf("expected mirrored sequence, got %v", playlist.TrackIDs)
		}
	})

	t.Run("Genre Strategy Uses Cached Artists", func(t *testing.T) {
		var replaced []string
		remote := &tu.MockService{
			ReplacePlaylistItemsFunc: func(ctx context.Context, id string, uris []string) error {
				replaced = uris
				return nil
			},
		}
		engine, cache, _ := setupEngine(t, remote)

		artistA, artistB := testID(801), testID(802)
		if err := cache.SaveArtists([]models.Artist{
			{ID: artistA, Name: "A", Genres: []string{"rock"}},
			{ID: artistB, Name: "B", Genres: []string{"jazz"}},
		}); err != nil {
			t.Fatalf("failed to seed artists: %v", err)
		}

		tracks := []models.Track{
			{ID: testID(1), Name: "R1", ArtistIDs: []string{artistA}},
			{ID: testID(2), Name: "R2", ArtistIDs: []string{artistA}},
			{ID: testID(3), Name: "J1", ArtistIDs: []string{artistB}},
			{ID: testID(4), Name: "J2", ArtistIDs: []string{artistB}},
		}
		if err := cache.SaveTracks(tracks); err != nil {
			t.Fatalf("failed to seed tracks: %v", err)
		}
		if err := cache.SavePlaylist(models.Playlist{
			ID:       playlistID,
			Name:     "Mix",
			TrackIDs: []string{testID(1), testID(2), testID(3), testID(4)},
		}); err != nil {
			t.Fatalf("failed to seed playlist: %v", err)
		}

		if err := engine.Shuffle(ctx, playlistID, "genre", 3, nil); err != nil {
			t.Fatalf("shuffle failed: %v", err)
		}
		if len(replaced) != 4 {
			t.Fatalf("expected 4 URIs, got %v", replaced)
		}

		// two genres of equal weight interleave with no adjacent repeats
		genreOf := map[string]string{
			testURI(1): "rock", testURI(2): "rock",
			testURI(3): "jazz", testURI(4): "jazz",
		}
		for i := 1; i < len(replaced); i++ {
			if genreOf[replaced[i]] == genreOf[replaced[i-1]] {
				t.Errorf("adjacent same-genre tracks at %d: %v", i, replaced)
			}
		}
	})
}
