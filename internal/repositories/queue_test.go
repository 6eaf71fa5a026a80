package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/services"
	"github.com/spotmirror/spotmirror/internal/shared"
)

func TestQueueRepository(t *testing.T) {
	t.Run("Append Assigns Increasing Sequences", func(t *testing.T) {
		repo := NewQueueRepository(setupTestStore(t))

		first, err := repo.Append(models.Operation{
			TargetType: models.EntityPlaylist,
			TargetID:   "playlist-1",
			Type:       models.OpAdd,
			Payload:    "spotify:track:aaa",
		})
		if err != nil {
			t.Fatalf("failed to append: %v", err)
		}

		second, err := repo.Append(models.Operation{
			TargetType: models.EntityPlaylist,
			TargetID:   "playlist-1",
			Type:       models.OpAdd,
			Payload:    "spotify:track:bbb",
		})
		if err != nil {
			t.Fatalf("failed to append: %v", err)
		}

		if second <= first {
			t.Errorf("expected increasing sequences, got %d then %d", first, second)
		}
	})

	t.Run("Rejects Unknown Target Type", func(t *testing.T) {
		repo := NewQueueRepository(setupTestStore(t))

		_, err := repo.Append(models.Operation{TargetType: "bogus", TargetID: "x", Type: models.OpAdd})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected input error, got %v", err)
		}
	})

	t.Run("PendingQueues Groups By Target", func(t *testing.T) {
		repo := NewQueueRepository(setupTestStore(t))

		ops := []models.Operation{
			{TargetType: models.EntityPlaylist, TargetID: "p1", Type: models.OpAdd, Payload: "spotify:track:aaa"},
			{TargetType: models.EntityPlaylist, TargetID: "p2", Type: models.OpAdd, Payload: "spotify:track:bbb"},
			{TargetType: models.EntityPlaylist, TargetID: "p1", Type: models.OpAdd, Payload: "spotify:track:ccc"},
		}
		for _, op := range ops {
			if _, err := repo.Append(op); err != nil {
				t.Fatalf("failed to append: %v", err)
			}
		}

		queues, err := repo.PendingQueues()
		if err != nil {
			t.Fatalf("failed to load queues: %v", err)
		}
		if len(queues) != 2 {
			t.Fatalf("expected 2 queues, got %d", len(queues))
		}

		// p1 enqueued first, so it flushes first
		if queues[0].TargetID != "p1" || len(queues[0].Operations) != 2 {
			t.Errorf("unexpected first queue: %+v", queues[0])
		}
		if queues[1].TargetID != "p2" || len(queues[1].Operations) != 1 {
			t.Errorf("unexpected second queue: %+v", queues[1])
		}
	})

	t.Run("Status Transitions Persist", func(t *testing.T) {
		repo := NewQueueRepository(setupTestStore(t))

		seq, err := repo.Append(models.Operation{
			TargetType: models.EntityPlaylist,
			TargetID:   "p1",
			Type:       models.OpAdd,
			Payload:    "spotify:track:aaa",
		})
		if err != nil {
			t.Fatalf("failed to append: %v", err)
		}

		if err := repo.SetStatus(seq, models.StatusInFlight); err != nil {
			t.Fatalf("failed to set status: %v", err)
		}

		ops, err := repo.Operations(models.StatusInFlight)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(ops) != 1 || ops[0].Sequence != seq {
			t.Fatalf("expected the in-flight operation, got %+v", ops)
		}

		// in-flight operations are no longer pending
		pending, err := repo.Operations(models.StatusPending)
		if err != nil {
			t.Fatalf("failed to list pending: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("expected no pending operations, got %+v", pending)
		}
	})

	t.Run("SetStatus Unknown Sequence Is Not Found", func(t *testing.T) {
		repo := NewQueueRepository(setupTestStore(t))

		err := repo.SetStatus(99, models.StatusApplied)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not-found error, got %v", err)
		}
	})

	t.Run("Replace Keeps Sequence Position", func(t *testing.T) {
		repo := NewQueueRepository(setupTestStore(t))

		seq, err := repo.Append(models.Operation{
			TargetType: models.EntityPlaylist,
			TargetID:   "p1",
			Type:       models.OpUpdate,
			Payload:    `{"name":"Old"}`,
		})
		if err != nil {
			t.Fatalf("failed to append: %v", err)
		}

		err = repo.Replace(seq, models.Operation{Type: models.OpUpdate, Payload: `{"name":"New"}`})
		if err != nil {
			t.Fatalf("failed to replace: %v", err)
		}

		ops, err := repo.Operations(models.StatusPending)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(ops) != 1 || ops[0].Sequence != seq || ops[0].Payload != `{"name":"New"}` {
			t.Errorf("expected payload replaced in place, got %+v", ops)
		}
	})

	t.Run("ClearApplied Keeps Failed", func(t *testing.T) {
		repo := NewQueueRepository(setupTestStore(t))

		applied, _ := repo.Append(models.Operation{TargetType: models.EntityPlaylist, TargetID: "p1", Type: models.OpAdd, Payload: "a"})
		failed, _ := repo.Append(models.Operation{TargetType: models.EntityPlaylist, TargetID: "p1", Type: models.OpAdd, Payload: "b"})

		if err := repo.SetStatuses([]int64{applied}, models.StatusApplied); err != nil {
			t.Fatalf("failed to mark applied: %v", err)
		}
		if err := repo.SetStatuses([]int64{failed}, models.StatusFailed); err != nil {
			t.Fatalf("failed to mark failed: %v", err)
		}

		if err := repo.ClearApplied(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}

		ops, err := repo.Operations()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(ops) != 1 || ops[0].Status != models.StatusFailed {
			t.Errorf("expected only the failed operation to remain, got %+v", ops)
		}
	})
}

func TestTokenRepository(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		repo := NewTokenRepository(setupTestStore(t))

		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		token := &services.Token{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Expiry:       expiry,
			Scopes:       "playlist-read-private",
		}

		if err := repo.SaveToken("extended", token); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		got, err := repo.LoadToken("extended")
		if err != nil {
			t.Fatalf("failed to load token: %v", err)
		}
		if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" {
			t.Errorf("credential mismatch: %+v", got)
		}
		if !got.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, got.Expiry)
		}
		if got.Scopes != "playlist-read-private" {
			t.Errorf("expected scopes persisted, got %q", got.Scopes)
		}
	})

	t.Run("Save Replaces Grant Row", func(t *testing.T) {
		repo := NewTokenRepository(setupTestStore(t))

		old := &services.Token{AccessToken: "old", Expiry: time.Now()}
		if err := repo.SaveToken("regular", old); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		fresh := &services.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}
		if err := repo.SaveToken("regular", fresh); err != nil {
			t.Fatalf("failed to resave token: %v", err)
		}

		got, err := repo.LoadToken("regular")
		if err != nil {
			t.Fatalf("failed to load token: %v", err)
		}
		if got.AccessToken != "fresh" {
			t.Errorf("expected replacement, got %q", got.AccessToken)
		}
	})

	t.Run("Missing Grant Is Not Found", func(t *testing.T) {
		repo := NewTokenRepository(setupTestStore(t))

		_, err := repo.LoadToken("extended")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not-found error, got %v", err)
		}
	})
}
