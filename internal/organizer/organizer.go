package organizer

import (
	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/shared"
)

// RemoveDuplicates filters tracks by identifier, keeping the first
// occurrence of each and preserving order.
func RemoveDuplicates(tracks []models.Track) []models.Track {
	seen := make(map[string]bool, len(tracks))
	unique := make([]models.Track, 0, len(tracks))

	for _, track := range tracks {
		if seen[track.ID] {
			continue
		}
		seen[track.ID] = true
		unique = append(unique, track)
	}

	return unique
}

// SplitChunks partitions items into ordered sub-sequences of at most size
// elements; the last chunk may be shorter. size must be >= 1.
func SplitChunks[T any](items []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, &shared.InputError{Field: "size", Value: size, Want: ">= 1"}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}

	return chunks, nil
}
