// Spotify Web API endpoint wrappers over the [Gateway].
//
// List endpoints are walked page by page (50-item ceiling) either eagerly
// or lazily; "several items" endpoints are fed by chunking identifier
// lists to the documented per-call limits and concatenating results in
// input order.
package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/organizer"
	"github.com/spotmirror/spotmirror/internal/shared"
)

// Client implements [Service] against the live API.
type Client struct {
	gateway *Gateway
}

var _ Service = (*Client)(nil)

// NewClient wraps a gateway in the typed endpoint surface.
func NewClient(gateway *Gateway) *Client {
	return &Client{gateway: gateway}
}

// fetchPage is one offset/limit call against a list endpoint.
type fetchPage[T any] func(ctx context.Context, limit, offset int) (*page[T], error)

// walkPages lazily visits pages in order. visit returning false stops the
// walk early; cancellation is checked between pages so a long walk can be
// aborted without waiting for completion.
func walkPages[T any](ctx context.Context, fetch fetchPage[T], visit func(items []T) (bool, error)) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, err := fetch(ctx, PageLimit, offset)
		if err != nil {
			return err
		}

		if len(p.Items) > 0 {
			cont, err := visit(p.Items)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}

		if p.Next == nil || len(p.Items) == 0 {
			return nil
		}
		offset += PageLimit
	}
}

// collectPages walks every page and returns the concatenated sequence.
func collectPages[T any](ctx context.Context, fetch fetchPage[T]) ([]T, error) {
	var all []T
	err := walkPages(ctx, fetch, func(items []T) (bool, error) {
		all = append(all, items...)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// batched issues one call per chunk of at most limit ids and concatenates
// results in input order, checking cancellation between chunks.
func batched[T any](ctx context.Context, ids []string, limit int, call func(ctx context.Context, chunk []string) ([]T, error)) ([]T, error) {
	chunks, err := organizer.SplitChunks(ids, limit)
	if err != nil {
		return nil, err
	}

	var all []T
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := call(ctx, chunk)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

func pageParams(limit, offset int) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	return params
}

func idsParam(ids []string) url.Values {
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	return params
}

// Me retrieves the current authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u spotifyUser
	if err := c.gateway.getJSON(ctx, GrantExtended, "/me", nil, &u); err != nil {
		return nil, err
	}
	return &models.User{ID: u.ID, DisplayName: u.DisplayName}, nil
}

// Track retrieves a single track by ID.
func (c *Client) Track(ctx context.Context, id string) (*models.Track, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}

	var t spotifyTrack
	if err := c.gateway.getJSON(ctx, GrantRegular, "/tracks/"+id, nil, &t); err != nil {
		return nil, err
	}
	track := t.toModel()
	return &track, nil
}

// SeveralTracks retrieves multiple tracks, chunked to the 50-item ceiling.
func (c *Client) SeveralTracks(ctx context.Context, ids []string) ([]models.Track, error) {
	if err := CheckIDs(ids); err != nil {
		return nil, err
	}

	return batched(ctx, ids, TrackBatchLimit, func(ctx context.Context, chunk []string) ([]models.Track, error) {
		var response struct {
			Tracks []spotifyTrack `json:"tracks"`
		}
		if err := c.gateway.getJSON(ctx, GrantRegular, "/tracks", idsParam(chunk), &response); err != nil {
			return nil, err
		}

		tracks := make([]models.Track, 0, len(response.Tracks))
		for _, t := range response.Tracks {
			tracks = append(tracks, t.toModel())
		}
		return tracks, nil
	})
}

// Album retrieves a single album by ID.
func (c *Client) Album(ctx context.Context, id string) (*models.Album, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}

	var a spotifyAlbum
	if err := c.gateway.getJSON(ctx, GrantRegular, "/albums/"+id, nil, &a); err != nil {
		return nil, err
	}
	album := a.toModel()
	return &album, nil
}

// SeveralAlbums retrieves multiple albums, chunked to the 20-item ceiling.
func (c *Client) SeveralAlbums(ctx context.Context, ids []string) ([]models.Album, error) {
	if err := CheckIDs(ids); err != nil {
		return nil, err
	}

	return batched(ctx, ids, AlbumBatchLimit, func(ctx context.Context, chunk []string) ([]models.Album, error) {
		var response struct {
			Albums []spotifyAlbum `json:"albums"`
		}
		if err := c.gateway.getJSON(ctx, GrantRegular, "/albums", idsParam(chunk), &response); err != nil {
			return nil, err
		}

		albums := make([]models.Album, 0, len(response.Albums))
		for _, a := range response.Albums {
			albums = append(albums, a.toModel())
		}
		return albums, nil
	})
}

// Artist retrieves a single artist by ID.
func (c *Client) Artist(ctx context.Context, id string) (*models.Artist, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}

	var a spotifyArtist
	if err := c.gateway.getJSON(ctx, GrantRegular, "/artists/"+id, nil, &a); err != nil {
		return nil, err
	}
	artist := a.toModel()
	return &artist, nil
}

// SeveralArtists retrieves multiple artists, chunked to the 50-item ceiling.
func (c *Client) SeveralArtists(ctx context.Context, ids []string) ([]models.Artist, error) {
	if err := CheckIDs(ids); err != nil {
		return nil, err
	}

	return batched(ctx, ids, ArtistBatchLimit, func(ctx context.Context, chunk []string) ([]models.Artist, error) {
		var response struct {
			Artists []spotifyArtist `json:"artists"`
		}
		if err := c.gateway.getJSON(ctx, GrantRegular, "/artists", idsParam(chunk), &response); err != nil {
			return nil, err
		}

		artists := make([]models.Artist, 0, len(response.Artists))
		for _, a := range response.Artists {
			artists = append(artists, a.toModel())
		}
		return artists, nil
	})
}

// Playlist retrieves playlist metadata (first track page embedded).
func (c *Client) Playlist(ctx context.Context, id string) (*models.Playlist, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}

	var p spotifyPlaylist
	if err := c.gateway.getJSON(ctx, GrantExtended, "/playlists/"+id, nil, &p); err != nil {
		return nil, err
	}
	playlist := p.toModel()
	return &playlist, nil
}

// PlaylistTracks walks every page of a playlist and returns the full
// ordered track sequence.
func (c *Client) PlaylistTracks(ctx context.Context, id string) ([]models.Track, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}

	items, err := collectPages(ctx, c.playlistTrackPage(id))
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, item.Track.toModel())
	}
	return tracks, nil
}

// PlaylistTracksPages visits playlist tracks page by page for callers
// that only need the first N items or want streaming consumption.
func (c *Client) PlaylistTracksPages(ctx context.Context, id string, visit func(tracks []models.Track) (bool, error)) error {
	if err := CheckID(id); err != nil {
		return err
	}

	return walkPages(ctx, c.playlistTrackPage(id), func(items []spotifyPlaylistTrack) (bool, error) {
		tracks := make([]models.Track, 0, len(items))
		for _, item := range items {
			tracks = append(tracks, item.Track.toModel())
		}
		return visit(tracks)
	})
}

func (c *Client) playlistTrackPage(id string) fetchPage[spotifyPlaylistTrack] {
	return func(ctx context.Context, limit, offset int) (*page[spotifyPlaylistTrack], error) {
		var p page[spotifyPlaylistTrack]
		if err := c.gateway.getJSON(ctx, GrantExtended, "/playlists/"+id+"/tracks", pageParams(limit, offset), &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
}

// UserPlaylists walks every page of the current user's playlists.
func (c *Client) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	items, err := collectPages(ctx, func(ctx context.Context, limit, offset int) (*page[spotifyPlaylist], error) {
		var p page[spotifyPlaylist]
		if err := c.gateway.getJSON(ctx, GrantExtended, "/me/playlists", pageParams(limit, offset), &p); err != nil {
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(items))
	for _, p := range items {
		playlists = append(playlists, p.toModel())
	}
	return playlists, nil
}

// SavedTracks walks every page of the user's library tracks.
func (c *Client) SavedTracks(ctx context.Context) ([]models.Track, error) {
	items, err := collectPages(ctx, func(ctx context.Context, limit, offset int) (*page[spotifySavedTrack], error) {
		var p page[spotifySavedTrack]
		if err := c.gateway.getJSON(ctx, GrantExtended, "/me/tracks", pageParams(limit, offset), &p); err != nil {
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, item.Track.toModel())
	}
	return tracks, nil
}

// Devices lists the user's available playback devices.
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	var response struct {
		Devices []spotifyDevice `json:"devices"`
	}
	if err := c.gateway.getJSON(ctx, GrantExtended, "/me/player/devices", nil, &response); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(response.Devices))
	for _, d := range response.Devices {
		devices = append(devices, models.Device{ID: d.ID, Name: d.Name, Type: d.Type, Active: d.IsActive})
	}
	return devices, nil
}

// AudioFeatures retrieves the feature vectors for the given tracks,
// keyed by track ID.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) (map[string]models.AudioFeatures, error) {
	if err := CheckIDs(ids); err != nil {
		return nil, err
	}

	raw, err := batched(ctx, ids, FeatureBatchLimit, func(ctx context.Context, chunk []string) ([]spotifyAudioFeatures, error) {
		var response struct {
			AudioFeatures []spotifyAudioFeatures `json:"audio_features"`
		}
		if err := c.gateway.getJSON(ctx, GrantRegular, "/audio-features", idsParam(chunk), &response); err != nil {
			return nil, err
		}
		return response.AudioFeatures, nil
	})
	if err != nil {
		return nil, err
	}

	features := make(map[string]models.AudioFeatures, len(raw))
	for _, f := range raw {
		features[f.ID] = f.toModel()
	}
	return features, nil
}

// CreatePlaylist creates an empty playlist owned by userID. The returned
// playlist carries the remote-assigned identifier.
func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	if userID == "" {
		return nil, &shared.InputError{Field: "userID", Value: userID, Want: "non-empty user id"}
	}
	if name == "" {
		return nil, &shared.InputError{Field: "name", Value: name, Want: "non-empty playlist name"}
	}

	body := map[string]any{"name": name, "description": description, "public": public}
	res, err := c.gateway.Request(ctx, http.MethodPost, "/users/"+userID+"/playlists", nil, body)
	if err != nil {
		return nil, err
	}

	var p spotifyPlaylist
	if err := res.Decode(&p); err != nil {
		return nil, err
	}
	playlist := p.toModel()
	return &playlist, nil
}

// ChangePlaylistDetails updates name, description or visibility.
func (c *Client) ChangePlaylistDetails(ctx context.Context, id string, details PlaylistDetails) error {
	if err := CheckID(id); err != nil {
		return err
	}
	_, err := c.gateway.Request(ctx, http.MethodPut, "/playlists/"+id, nil, details)
	return err
}

// AddPlaylistItems appends tracks in order, one call per 100-URI chunk.
func (c *Client) AddPlaylistItems(ctx context.Context, id string, uris []string) error {
	if err := CheckID(id); err != nil {
		return err
	}
	if err := CheckURIs(uris); err != nil {
		return err
	}

	chunks, err := organizer.SplitChunks(uris, PlaylistItemLimit)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		body := map[string]any{"uris": chunk}
		if _, err := c.gateway.Request(ctx, http.MethodPost, "/playlists/"+id+"/tracks", nil, body); err != nil {
			return err
		}
	}
	return nil
}

// RemovePlaylistItems removes all occurrences of the given tracks.
func (c *Client) RemovePlaylistItems(ctx context.Context, id string, uris []string) error {
	if err := CheckID(id); err != nil {
		return err
	}
	if err := CheckURIs(uris); err != nil {
		return err
	}

	chunks, err := organizer.SplitChunks(uris, PlaylistItemLimit)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		items := make([]map[string]string, 0, len(chunk))
		for _, uri := range chunk {
			items = append(items, map[string]string{"uri": uri})
		}
		body := map[string]any{"tracks": items}
		if _, err := c.gateway.Request(ctx, http.MethodDelete, "/playlists/"+id+"/tracks", nil, body); err != nil {
			return err
		}
	}
	return nil
}

// ReplacePlaylistItems expresses a reorder as a full-sequence replace:
// the first chunk replaces the playlist contents, the rest append.
func (c *Client) ReplacePlaylistItems(ctx context.Context, id string, uris []string) error {
	if err := CheckID(id); err != nil {
		return err
	}
	if err := CheckURIs(uris); err != nil {
		return err
	}

	if len(uris) == 0 {
		body := map[string]any{"uris": []string{}}
		_, err := c.gateway.Request(ctx, http.MethodPut, "/playlists/"+id+"/tracks", nil, body)
		return err
	}

	chunks, err := organizer.SplitChunks(uris, PlaylistItemLimit)
	if err != nil {
		return err
	}
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		body := map[string]any{"uris": chunk}
		method := http.MethodPost
		if i == 0 {
			method = http.MethodPut
		}
		if _, err := c.gateway.Request(ctx, method, "/playlists/"+id+"/tracks", nil, body); err != nil {
			return err
		}
	}
	return nil
}

// SaveTracks adds tracks to the user's library.
func (c *Client) SaveTracks(ctx context.Context, ids []string) error {
	return c.libraryCall(ctx, http.MethodPut, "/me/tracks", ids, TrackBatchLimit)
}

// RemoveSavedTracks removes tracks from the user's library.
func (c *Client) RemoveSavedTracks(ctx context.Context, ids []string) error {
	return c.libraryCall(ctx, http.MethodDelete, "/me/tracks", ids, TrackBatchLimit)
}

func (c *Client) libraryCall(ctx context.Context, method, endpoint string, ids []string, limit int) error {
	if err := CheckIDs(ids); err != nil {
		return err
	}

	chunks, err := organizer.SplitChunks(ids, limit)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.gateway.Request(ctx, method, endpoint, idsParam(chunk), nil); err != nil {
			return err
		}
	}
	return nil
}

// FollowArtists follows the given artists for the current user.
func (c *Client) FollowArtists(ctx context.Context, ids []string) error {
	return c.followCall(ctx, http.MethodPut, ids)
}

// UnfollowArtists unfollows the given artists.
func (c *Client) UnfollowArtists(ctx context.Context, ids []string) error {
	return c.followCall(ctx, http.MethodDelete, ids)
}

func (c *Client) followCall(ctx context.Context, method string, ids []string) error {
	if err := CheckIDs(ids); err != nil {
		return err
	}

	chunks, err := organizer.SplitChunks(ids, ArtistBatchLimit)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		params := idsParam(chunk)
		params.Set("type", "artist")
		if _, err := c.gateway.Request(ctx, method, "/me/following", params, nil); err != nil {
			return err
		}
	}
	return nil
}

// TransferPlayback moves playback to the given device. A device the
// remote service does not know about surfaces as a domain error.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return &shared.InputError{Field: "deviceID", Value: deviceID, Want: "non-empty device id"}
	}

	body := map[string]any{"device_ids": []string{deviceID}}
	_, err := c.gateway.Request(ctx, http.MethodPut, "/me/player", nil, body)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &shared.DomainError{Kind: "device", ID: deviceID, Err: shared.ErrNoSuchDevice}
		}
		return err
	}
	return nil
}
