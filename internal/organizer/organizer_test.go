package organizer

import (
	"errors"
	"testing"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/shared"
)

func track(id string) models.Track {
	return models.Track{ID: id, Name: "track " + id}
}

func TestRemoveDuplicates(t *testing.T) {
	t.Run("First Occurrence Wins", func(t *testing.T) {
		tracks := []models.Track{track("a"), track("b"), track("a"), track("c"), track("b")}

		unique := RemoveDuplicates(tracks)

		if len(unique) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(unique))
		}
		for i, want := range []string{"a", "b", "c"} {
			if unique[i].ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, unique[i].ID)
			}
		}
	})

	t.Run("No Identifier Twice", func(t *testing.T) {
		tracks := []models.Track{track("x"), track("x"), track("x")}

		unique := RemoveDuplicates(tracks)

		seen := map[string]int{}
		for _, tr := range unique {
			seen[tr.ID]++
		}
		for id, n := range seen {
			if n > 1 {
				t.Errorf("identifier %s appears %d times", id, n)
			}
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		if got := RemoveDuplicates(nil); len(got) != 0 {
			t.Errorf("expected empty output, got %v", got)
		}
	})
}

func TestSplitChunks(t *testing.T) {
	t.Run("Concatenation Reproduces Input", func(t *testing.T) {
		items := []string{"a", "b", "c", "d", "e", "f", "g"}

		chunks, err := SplitChunks(items, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var flat []string
		for _, chunk := range chunks {
			flat = append(flat, chunk...)
		}
		if len(flat) != len(items) {
			t.Fatalf("expected %d items, got %d", len(items), len(flat))
		}
		for i := range items {
			if flat[i] != items[i] {
				t.Errorf("position %d: expected %s, got %s", i, items[i], flat[i])
			}
		}
	})

	t.Run("Chunk Lengths", func(t *testing.T) {
		chunks, err := SplitChunks([]int{1, 2, 3, 4, 5}, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(chunks) != 3 {
			t.Fatalf("expected 3 chunks, got %d", len(chunks))
		}
		for i, chunk := range chunks {
			if len(chunk) > 2 {
				t.Errorf("chunk %d exceeds size: %d", i, len(chunk))
			}
			if len(chunk) < 2 && i != len(chunks)-1 {
				t.Errorf("short chunk %d is not the last", i)
			}
		}
	})

	t.Run("Size Below One", func(t *testing.T) {
		_, err := SplitChunks([]int{1, 2, 3}, 0)
		if err == nil {
			t.Fatal("expected error for size 0")
		}
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected input error, got %v", err)
		}

		var inputErr *shared.InputError
		if !errors.As(err, &inputErr) {
			t.Errorf("expected *shared.InputError, got %T", err)
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		chunks, err := SplitChunks([]string{}, 50)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("expected no chunks, got %d", len(chunks))
		}
	})
}
