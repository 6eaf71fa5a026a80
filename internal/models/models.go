package models

// EntityType names a kind of remote entity.
type EntityType string

const (
	EntityTrack    EntityType = "track"
	EntityAlbum    EntityType = "album"
	EntityArtist   EntityType = "artist"
	EntityPlaylist EntityType = "playlist"
	EntityDevice   EntityType = "device"
	EntityUser     EntityType = "user"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTrack, EntityAlbum, EntityArtist, EntityPlaylist, EntityDevice, EntityUser:
		return true
	}
	return false
}

// Table returns the cache table backing this entity type.
func (t EntityType) Table() string {
	return string(t) + "s"
}

// AudioFeatures is the optional per-track audio analysis vector.
type AudioFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
}

// Track is a single playable item. ArtistIDs preserves the credited order.
type Track struct {
	ID          string
	Name        string
	DurationMS  int
	AlbumID     string
	ArtistIDs   []string
	Popularity  int
	ExternalID  string // ISRC
	Features    *AudioFeatures
	Blacklisted bool
}

// Album groups an ordered sequence of tracks under release metadata.
type Album struct {
	ID          string
	Name        string
	ArtistIDs   []string
	ReleaseDate string
	TrackIDs    []string
	Popularity  int
	Blacklisted bool
}

// Artist carries the genre tags the organizer groups by.
type Artist struct {
	ID          string
	Name        string
	Genres      []string
	Popularity  int
	Blacklisted bool
}

// Playlist is an ordered sequence of track references. TrackIDs is the
// sole ordering source of truth; reordering is always expressed as a
// full-sequence replace.
type Playlist struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	TrackIDs    []string
	Public      bool
	SnapshotID  string
	Blacklisted bool
}

// Device is a playback endpoint known to the remote service.
type Device struct {
	ID     string
	Name   string
	Type   string
	Active bool
}

// User is the account entity. The top-genre summary is derived on demand
// (see TopGenres), never persisted eagerly.
type User struct {
	ID          string
	DisplayName string
}

// TopGenres tallies genre tags across the given artists and returns up to
// max genres ordered by descending frequency. Ties break on first
// appearance so the result is stable for a fixed artist order.
func (u User) TopGenres(artists []Artist, max int) []string {
	counts := map[string]int{}
	var order []string
	for _, a := range artists {
		for _, g := range a.Genres {
			if counts[g] == 0 {
				order = append(order, g)
			}
			counts[g]++
		}
	}

	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && counts[order[j]] > counts[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	if max > 0 && len(order) > max {
		order = order[:max]
	}
	return order
}
