package organizer

import (
	"math/rand"
	"sort"
	"time"

	"github.com/spotmirror/spotmirror/internal/models"
)

// Strategy reorders a track sequence. Implementations must not mutate the
// input slice.
type Strategy interface {
	Organize(tracks []models.Track, rng *rand.Rand) []models.Track
	Name() string
}

// NewRand returns a seedable pseudo-random source. A zero seed falls back
// to the current time.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Organize applies the strategy with a source seeded by seed.
func Organize(tracks []models.Track, strategy Strategy, seed int64) []models.Track {
	return strategy.Organize(tracks, NewRand(seed))
}

// PlainShuffle is an unbiased Fisher-Yates shuffle; every track occurs
// exactly once in the output.
type PlainShuffle struct{}

func (PlainShuffle) Name() string { return "plain" }

func (PlainShuffle) Organize(tracks []models.Track, rng *rand.Rand) []models.Track {
	shuffled := make([]models.Track, len(tracks))
	copy(shuffled, tracks)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// GenreWeightedShuffle groups tracks by a genre key, shuffles within each
// group, then interleaves groups so no two same-genre tracks run
// back-to-back unless one genre dominates the remaining pool.
//
// GenreOf maps a track to its grouping key. Tracks mapping to "" form
// their own group.
type GenreWeightedShuffle struct {
	GenreOf func(models.Track) string
}

func (GenreWeightedShuffle) Name() string { return "genre" }

func (s GenreWeightedShuffle) Organize(tracks []models.Track, rng *rand.Rand) []models.Track {
	if s.GenreOf == nil || len(tracks) < 2 {
		return PlainShuffle{}.Organize(tracks, rng)
	}

	groups := map[string][]models.Track{}
	var keys []string
	for _, track := range tracks {
		key := s.GenreOf(track)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], track)
	}

	for _, key := range keys {
		group := groups[key]
		shuffled := make([]models.Track, len(group))
		copy(shuffled, group)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		groups[key] = shuffled
	}

	// Largest remaining group first, avoiding the genre just placed.
	// When one group outnumbers everything else combined, adjacent
	// same-genre tracks are unavoidable and allowed.
	result := make([]models.Track, 0, len(tracks))
	last := ""
	for len(result) < len(tracks) {
		sort.SliceStable(keys, func(i, j int) bool {
			return len(groups[keys[i]]) > len(groups[keys[j]])
		})

		pick := ""
		for _, key := range keys {
			if len(groups[key]) == 0 {
				continue
			}
			if pick == "" {
				pick = key
			}
			if key != last {
				pick = key
				break
			}
		}
		if pick == "" {
			break
		}

		result = append(result, groups[pick][0])
		groups[pick] = groups[pick][1:]
		last = pick
	}

	return result
}

// StrategyByName resolves a configured strategy name; unknown names fall
// back to the plain shuffle.
func StrategyByName(name string, genreOf func(models.Track) string) Strategy {
	switch name {
	case "genre", "genre-weighted":
		return GenreWeightedShuffle{GenreOf: genreOf}
	default:
		return PlainShuffle{}
	}
}
