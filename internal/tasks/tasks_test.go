package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/repositories"
	"github.com/spotmirror/spotmirror/internal/shared"
	tu "github.com/spotmirror/spotmirror/internal/testing"
)

// testID builds a well-formed 22-char identifier from a small number.
func testID(n int) string {
	return fmt.Sprintf("%022d", n)
}

func testURI(n int) string {
	return "spotify:track:" + testID(n)
}

func setupEngine(t *testing.T, remote *tu.MockService) (*Engine, *repositories.CacheRepository, *repositories.QueueRepository) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	store := repositories.NewStore(db)
	cache := repositories.NewCacheRepository(store)
	queue := repositories.NewQueueRepository(store)
	return NewEngine(remote, cache, queue, nil), cache, queue
}

func playlistOp(opType models.OpType, playlistID, payload string) models.Operation {
	return models.Operation{
		TargetType: models.EntityPlaylist,
		TargetID:   playlistID,
		Type:       opType,
		Payload:    payload,
	}
}

func TestEnqueueEdit(t *testing.T) {
	playlistID := testID(900)

	t.Run("Assigns Sequence", func(t *testing.T) {
		engine, _, queue := setupEngine(t, &tu.MockService{})

		seq, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(1)))
		if err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if seq == 0 {
			t.Error("expected a non-zero sequence")
		}

		ops, err := queue.Operations(models.StatusPending)
		if err != nil {
			t.Fatalf("failed to list queue: %v", err)
		}
		if len(ops) != 1 || ops[0].Payload != testURI(1) {
			t.Errorf("unexpected queue contents: %+v", ops)
		}
	})

	t.Run("Add Then Remove Nets To Nothing", func(t *testing.T) {
		engine, _, queue := setupEngine(t, &tu.MockService{})

		if _, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(1))); err != nil {
			t.Fatalf("failed to enqueue add: %v", err)
		}

		seq, err := engine.EnqueueEdit(playlistOp(models.OpRemove, playlistID, testURI(1)))
		if err != nil {
			t.Fatalf("failed to enqueue remove: %v", err)
		}
		if seq != 0 {
			t.Errorf("expected zero sequence for coalesced edit, got %d", seq)
		}

		ops, err := queue.Operations()
		if err != nil {
			t.Fatalf("failed to list queue: %v", err)
		}
		if len(ops) != 0 {
			t.Errorf("expected empty queue, got %+v", ops)
		}
	})

	t.Run("Different Payloads Do Not Coalesce", func(t *testing.T) {
		engine, _, queue := setupEngine(t, &tu.MockService{})

		if _, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(1))); err != nil {
			t.Fatalf("failed to enqueue add: %v", err)
		}
		if _, err := engine.EnqueueEdit(playlistOp(models.OpRemove, playlistID, testURI(2))); err != nil {
			t.Fatalf("failed to enqueue remove: %v", err)
		}

		ops, err := queue.Operations(models.StatusPending)
		if err != nil {
			t.Fatalf("failed to list queue: %v", err)
		}
		if len(ops) != 2 {
			t.Errorf("expected both edits kept, got %+v", ops)
		}
	})

	t.Run("Second Update Wins In Place", func(t *testing.T) {
		engine, _, queue := setupEngine(t, &tu.MockService{})

		first, err := engine.EnqueueEdit(playlistOp(models.OpUpdate, playlistID, `{"name":"Old"}`))
		if err != nil {
			t.Fatalf("failed to enqueue update: %v", err)
		}

		second, err := engine.EnqueueEdit(playlistOp(models.OpUpdate, playlistID, `{"name":"New"}`))
		if err != nil {
			t.Fatalf("failed to enqueue update: %v", err)
		}
		if second != first {
			t.Errorf("expected replacement to keep sequence %d, got %d", first, second)
		}

		ops, err := queue.Operations(models.StatusPending)
		if err != nil {
			t.Fatalf("failed to list queue: %v", err)
		}
		if len(ops) != 1 || ops[0].Payload != `{"name":"New"}` {
			t.Errorf("expected last write to win, got %+v", ops)
		}
	})

	t.Run("Rejects Malformed URI", func(t *testing.T) {
		engine, _, _ := setupEngine(t, &tu.MockService{})

		_, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, "not-a-uri"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected input error, got %v", err)
		}
	})

	t.Run("Notifies Subscribers", func(t *testing.T) {
		engine, _, _ := setupEngine(t, &tu.MockService{})

		events, cancel := engine.Subscribe()
		defer cancel()

		seq, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(1)))
		if err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		event := <-events
		if event.Sequence != seq || event.Status != models.StatusPending {
			t.Errorf("unexpected event: %+v", event)
		}
		if event.TargetID != playlistID || event.Type != models.OpAdd {
			t.Errorf("unexpected event target: %+v", event)
		}
	})
}

func TestFlush(t *testing.T) {
	ctx := context.Background()
	playlistID := testID(900)

	t.Run("Queued Adds Reach Remote And Cache In Order", func(t *testing.T) {
		var gotURIs []string
		remote := &tu.MockService{
			AddPlaylistItemsFunc: func(ctx context.Context, id string, uris []string) error {
				gotURIs = append(gotURIs, uris...)
				return nil
			},
		}
		engine, cache, queue := setupEngine(t, remote)

		if err := cache.SavePlaylist(models.Playlist{ID: playlistID, Name: "Mix"}); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		for i := 1; i <= 5; i++ {
			if _, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(i))); err != nil {
				t.Fatalf("failed to enqueue: %v", err)
			}
		}

		outcomes, err := engine.Flush(ctx, nil)
		if err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if len(outcomes) != 1 || outcomes[0].Err != nil {
			t.Fatalf("unexpected outcomes: %+v", outcomes)
		}
		if len(outcomes[0].Applied) != 5 {
			t.Errorf("expected 5 applied sequences, got %v", outcomes[0].Applied)
		}

		// one batched remote call carrying all five URIs in order
		if len(gotURIs) != 5 {
			t.Fatalf("expected 5 URIs sent, got %v", gotURIs)
		}
		for i, uri := range gotURIs {
			if uri != testURI(i+1) {
				t.Errorf("position %d: expected %s, got %s", i, testURI(i+1), uri)
			}
		}

		// cache now holds exactly those five associations in enqueue order
		ids, err := cache.PlaylistTrackIDs(playlistID)
		if err != nil {
			t.Fatalf("failed to load cache: %v", err)
		}
		if len(ids) != 5 {
			t.Fatalf("expected 5 cached tracks, got %v", ids)
		}
		for i, id := range ids {
			if id != testID(i+1) {
				t.Errorf("position %d: expected %s, got %s", i, testID(i+1), id)
			}
		}

		// applied rows are cleared
		ops, err := queue.Operations()
		if err != nil {
			t.Fatalf("failed to list queue: %v", err)
		}
		if len(ops) != 0 {
			t.Errorf("expected empty queue after flush, got %+v", ops)
		}
	})

	t.Run("Empty Queue Contacts No Remote", func(t *testing.T) {
		remote := &tu.MockService{}
		engine, _, _ := setupEngine(t, remote)

		outcomes, err := engine.Flush(ctx, nil)
		if err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if len(outcomes) != 0 {
			t.Errorf("expected no outcomes, got %+v", outcomes)
		}
		if len(remote.Calls) != 0 {
			t.Errorf("expected no remote calls, got %v", remote.Calls)
		}
	})

	t.Run("Consecutive Runs Batch By Type", func(t *testing.T) {
		var calls []string
		remote := &tu.MockService{
			AddPlaylistItemsFunc: func(ctx context.Context, id string, uris []string) error {
				calls = append(calls, fmt.Sprintf("add:%d", len(uris)))
				return nil
			},
			RemovePlaylistItemsFunc: func(ctx context.Context, id string, uris []string) error {
				calls = append(calls, fmt.Sprintf("remove:%d", len(uris)))
				return nil
			},
		}
		engine, cache, _ := setupEngine(t, remote)

		if err := cache.SavePlaylist(models.Playlist{ID: playlistID, Name: "Mix", TrackIDs: []string{testID(9)}}); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		edits := []models.Operation{
			playlistOp(models.OpAdd, playlistID, testURI(1)),
			playlistOp(models.OpAdd, playlistID, testURI(2)),
			playlistOp(models.OpRemove, playlistID, testURI(9)),
			playlistOp(models.OpAdd, playlistID, testURI(3)),
		}
		for _, edit := range edits {
			if _, err := engine.EnqueueEdit(edit); err != nil {
				t.Fatalf("failed to enqueue: %v", err)
			}
		}

		outcomes, err := engine.Flush(ctx, nil)
		if err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if outcomes[0].Err != nil {
			t.Fatalf("unexpected outcome error: %v", outcomes[0].Err)
		}

		want := []string{"add:2", "remove:1", "add:1"}
		if len(calls) != len(want) {
			t.Fatalf("expected calls %v, got %v", want, calls)
		}
		for i := range want {
			if calls[i] != want[i] {
				t.Errorf("call %d: expected %s, got %s", i, want[i], calls[i])
			}
		}
	})

	t.Run("Rejected Run Fails And Cache Stays Untouched", func(t *testing.T) {
		remote := &tu.MockService{
			AddPlaylistItemsFunc: func(ctx context.Context, id string, uris []string) error {
				return errors.New("remote rejected")
			},
		}
		engine, cache, queue := setupEngine(t, remote)

		if err := cache.SavePlaylist(models.Playlist{ID: playlistID, Name: "Mix"}); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		if _, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(1))); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		outcomes, err := engine.Flush(ctx, nil)
		if err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if outcomes[0].Err == nil {
			t.Fatal("expected outcome error")
		}
		if len(outcomes[0].Failed) != 1 {
			t.Errorf("expected 1 failed sequence, got %v", outcomes[0].Failed)
		}

		ids, err := cache.PlaylistTrackIDs(playlistID)
		if err != nil {
			t.Fatalf("failed to load cache: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("expected cache untouched, got %v", ids)
		}

		ops, err := queue.Operations(models.StatusFailed)
		if err != nil {
			t.Fatalf("failed to list queue: %v", err)
		}
		if len(ops) != 1 {
			t.Errorf("expected the operation marked failed, got %+v", ops)
		}
	})

	t.Run("Failure Returns Later Ops To Pending", func(t *testing.T) {
		remote := &tu.MockService{
			AddPlaylistItemsFunc: func(ctx context.Context, id string, uris []string) error {
				return errors.New("remote rejected")
			},
		}
		engine, cache, queue := setupEngine(t, remote)

		if err := cache.SavePlaylist(models.Playlist{ID: playlistID, Name: "Mix", TrackIDs: []string{testID(9)}}); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		if _, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(1))); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if _, err := engine.EnqueueEdit(playlistOp(models.OpRemove, playlistID, testURI(9))); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		if _, err := engine.Flush(ctx, nil); err != nil {
			t.Fatalf("flush failed: %v", err)
		}

		pending, err := queue.Operations(models.StatusPending)
		if err != nil {
			t.Fatalf("failed to list queue: %v", err)
		}
		if len(pending) != 1 || pending[0].Type != models.OpRemove {
			t.Errorf("expected the untouched remove back in pending, got %+v", pending)
		}
	})

	t.Run("Target Already In Flight Is Skipped", func(t *testing.T) {
		engine, _, _ := setupEngine(t, &tu.MockService{})

		if _, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(1))); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		engine.mu.Lock()
		engine.inFlight["playlist:"+playlistID] = true
		engine.mu.Unlock()

		outcome, err := engine.FlushTarget(ctx, models.EntityPlaylist, playlistID, nil)
		if err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if !outcome.Skipped || !errors.Is(outcome.Err, shared.ErrFlushInProgress) {
			t.Errorf("expected skipped outcome, got %+v", outcome)
		}
	})

	t.Run("Cancellation Stops Between Targets", func(t *testing.T) {
		remote := &tu.MockService{}
		engine, _, _ := setupEngine(t, remote)

		if _, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(1))); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.Flush(cancelled, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(remote.Calls) != 0 {
			t.Errorf("expected no remote calls, got %v", remote.Calls)
		}
	})
}

func TestFetchView(t *testing.T) {
	playlistID := testID(900)

	t.Run("Overlays Pending Edits", func(t *testing.T) {
		engine, cache, _ := setupEngine(t, &tu.MockService{})

		if err := cache.SavePlaylist(models.Playlist{
			ID:       playlistID,
			Name:     "Mix",
			TrackIDs: []string{testID(1), testID(2)},
		}); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}

		if _, err := engine.EnqueueEdit(playlistOp(models.OpAdd, playlistID, testURI(3))); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if _, err := engine.EnqueueEdit(playlistOp(models.OpRemove, playlistID, testURI(1))); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if _, err := engine.EnqueueEdit(playlistOp(models.OpUpdate, playlistID, `{"name":"Renamed"}`)); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		view, err := engine.FetchView(playlistID)
		if err != nil {
			t.Fatalf("failed to fetch view: %v", err)
		}
		if view.Playlist.Name != "Renamed" {
			t.Errorf("expected pending rename applied, got %q", view.Playlist.Name)
		}
		if len(view.Playlist.TrackIDs) != 2 || view.Playlist.TrackIDs[0] != testID(2) || view.Playlist.TrackIDs[1] != testID(3) {
			t.Errorf("unexpected overlaid sequence: %v", view.Playlist.TrackIDs)
		}
		if len(view.Pending) != 3 {
			t.Errorf("expected 3 pending operations, got %d", len(view.Pending))
		}
	})

	t.Run("Cache Stays Untouched", func(t *testing.T) {
		engine, cache, _ := setupEngine(t, &tu.MockService{})

		if err := cache.SavePlaylist(models.Playlist{ID: playlistID, Name: "Mix", TrackIDs: []string{testID(1)}}); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}
		if _, err := engine.EnqueueEdit(playlistOp(models.OpRemove, playlistID, testURI(1))); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		if _, err := engine.FetchView(playlistID); err != nil {
			t.Fatalf("failed to fetch view: %v", err)
		}

		ids, err := cache.PlaylistTrackIDs(playlistID)
		if err != nil {
			t.Fatalf("failed to load cache: %v", err)
		}
		if len(ids) != 1 {
			t.Errorf("expected cache unchanged, got %v", ids)
		}
	})
}
