package services

import (
	"context"

	"github.com/spotmirror/spotmirror/internal/models"
)

// Service is the remote API surface consumed by the cache, the change
// queue and the CLI. [Client] is the production implementation; tests
// substitute mocks.
type Service interface {
	// Reads
	Me(ctx context.Context) (*models.User, error)
	Track(ctx context.Context, id string) (*models.Track, error)
	SeveralTracks(ctx context.Context, ids []string) ([]models.Track, error)
	Album(ctx context.Context, id string) (*models.Album, error)
	SeveralAlbums(ctx context.Context, ids []string) ([]models.Album, error)
	Artist(ctx context.Context, id string) (*models.Artist, error)
	SeveralArtists(ctx context.Context, ids []string) ([]models.Artist, error)
	Playlist(ctx context.Context, id string) (*models.Playlist, error)
	PlaylistTracks(ctx context.Context, id string) ([]models.Track, error)
	UserPlaylists(ctx context.Context) ([]models.Playlist, error)
	SavedTracks(ctx context.Context) ([]models.Track, error)
	Devices(ctx context.Context) ([]models.Device, error)
	AudioFeatures(ctx context.Context, ids []string) (map[string]models.AudioFeatures, error)

	// Mutations
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error)
	ChangePlaylistDetails(ctx context.Context, id string, details PlaylistDetails) error
	AddPlaylistItems(ctx context.Context, id string, uris []string) error
	RemovePlaylistItems(ctx context.Context, id string, uris []string) error
	ReplacePlaylistItems(ctx context.Context, id string, uris []string) error
	SaveTracks(ctx context.Context, ids []string) error
	RemoveSavedTracks(ctx context.Context, ids []string) error
	FollowArtists(ctx context.Context, ids []string) error
	UnfollowArtists(ctx context.Context, ids []string) error
	TransferPlayback(ctx context.Context, deviceID string) error
}

// PlaylistDetails carries the mutable playlist attributes for a details
// update; nil fields are left unchanged.
type PlaylistDetails struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Public      *bool   `json:"public,omitempty"`
}

// Remote per-call ceilings, per the Web API reference.
const (
	// PageLimit is the maximum page size for offset/limit list endpoints.
	PageLimit = 50
	// TrackBatchLimit bounds the "several tracks" and saved-track endpoints.
	TrackBatchLimit = 50
	// ArtistBatchLimit bounds the "several artists" and follow endpoints.
	ArtistBatchLimit = 50
	// AlbumBatchLimit bounds the "several albums" endpoint.
	AlbumBatchLimit = 20
	// PlaylistItemLimit bounds add/remove/replace playlist item calls.
	PlaylistItemLimit = 100
	// FeatureBatchLimit bounds the audio-features endpoint.
	FeatureBatchLimit = 100
)

// Wire types mirror the Web API response shapes.
// https://developer.spotify.com/documentation/web-api/reference/

type externalIDs struct {
	ISRC string `json:"isrc"`
}

type spotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []spotifyArtist `json:"artists"`
	Album       spotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	URI         string          `json:"uri"`
}

type spotifyArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
}

type spotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []spotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int                 `json:"total_tracks"`
	Tracks      *page[spotifyTrack] `json:"tracks"`
	URI         string              `json:"uri"`
}

type spotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   spotifyTrack `json:"track"`
}

type spotifyPlaylist struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Owner       spotifyOwner `json:"owner"`
	Public      bool         `json:"public"`
	SnapshotID  string       `json:"snapshot_id"`
	Tracks      struct {
		Total int                    `json:"total"`
		Items []spotifyPlaylistTrack `json:"items"`
	} `json:"tracks"`
	URI string `json:"uri"`
}

type spotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   spotifyTrack `json:"track"`
}

type spotifyDevice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

type spotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifyAudioFeatures struct {
	ID               string  `json:"id"`
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

// page is the Web API's offset/limit pagination envelope.
type page[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

func (t spotifyTrack) toModel() models.Track {
	track := models.Track{
		ID:         t.ID,
		Name:       t.Name,
		DurationMS: t.DurationMS,
		AlbumID:    t.Album.ID,
		Popularity: t.Popularity,
		ExternalID: t.ExternalIDs.ISRC,
	}
	for _, a := range t.Artists {
		track.ArtistIDs = append(track.ArtistIDs, a.ID)
	}
	return track
}

func (a spotifyArtist) toModel() models.Artist {
	return models.Artist{ID: a.ID, Name: a.Name, Genres: a.Genres, Popularity: a.Popularity}
}

func (a spotifyAlbum) toModel() models.Album {
	album := models.Album{
		ID:          a.ID,
		Name:        a.Name,
		ReleaseDate: a.ReleaseDate,
	}
	for _, ar := range a.Artists {
		album.ArtistIDs = append(album.ArtistIDs, ar.ID)
	}
	if a.Tracks != nil {
		for _, t := range a.Tracks.Items {
			album.TrackIDs = append(album.TrackIDs, t.ID)
		}
	}
	return album
}

func (p spotifyPlaylist) toModel() models.Playlist {
	playlist := models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.Owner.ID,
		Public:      p.Public,
		SnapshotID:  p.SnapshotID,
	}
	for _, item := range p.Tracks.Items {
		playlist.TrackIDs = append(playlist.TrackIDs, item.Track.ID)
	}
	return playlist
}

func (f spotifyAudioFeatures) toModel() models.AudioFeatures {
	return models.AudioFeatures{
		Acousticness:     f.Acousticness,
		Danceability:     f.Danceability,
		Energy:           f.Energy,
		Instrumentalness: f.Instrumentalness,
		Liveness:         f.Liveness,
		Loudness:         f.Loudness,
		Speechiness:      f.Speechiness,
		Tempo:            f.Tempo,
		Valence:          f.Valence,
	}
}
