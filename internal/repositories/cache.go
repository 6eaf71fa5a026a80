package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/shared"
)

// CacheRepository persists last-confirmed remote state per entity table.
//
// Callers must only write after the remote service acknowledged the state
// being written; speculative edits belong in the queue.
type CacheRepository struct {
	store *Store
}

// NewCacheRepository creates a CacheRepository over the given store.
func NewCacheRepository(store *Store) *CacheRepository {
	return &CacheRepository{store: store}
}

func encodeList(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func decodeList(raw any) []string {
	s, ok := asString(raw)
	if !ok || s == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// asString normalizes TEXT column values, which the driver may surface as
// string or []byte.
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

// SaveTracks upserts tracks in one transaction.
func (r *CacheRepository) SaveTracks(tracks []models.Track) error {
	batch := make([]BatchQuery, 0, len(tracks))
	for _, t := range tracks {
		var features any
		if t.Features != nil {
			b, err := json.Marshal(t.Features)
			if err != nil {
				return fmt.Errorf("failed to encode audio features for %s: %w", t.ID, err)
			}
			features = string(b)
		}

		batch = append(batch, BatchQuery{
			Query: `
				INSERT OR REPLACE INTO tracks (id, name, duration_ms, album_id, artist_ids, popularity, external_id, features, blacklisted, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			`,
			Args: []any{t.ID, t.Name, t.DurationMS, t.AlbumID, encodeList(t.ArtistIDs), t.Popularity, t.ExternalID, features, t.Blacklisted},
		})
	}
	return r.store.ExecBatch(batch)
}

// SaveTrack upserts a single track.
func (r *CacheRepository) SaveTrack(track models.Track) error {
	return r.SaveTracks([]models.Track{track})
}

// SaveTrackFeatures writes feature vectors onto already-cached tracks in
// one transaction. IDs without a cached row are ignored.
func (r *CacheRepository) SaveTrackFeatures(features map[string]models.AudioFeatures) error {
	batch := make([]BatchQuery, 0, len(features))
	for id, f := range features {
		b, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to encode audio features for %s: %w", id, err)
		}
		batch = append(batch, BatchQuery{
			Query: `UPDATE tracks SET features = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			Args:  []any{string(b), id},
		})
	}
	return r.store.ExecBatch(batch)
}

// Track loads a cached track by remote ID.
func (r *CacheRepository) Track(id string) (*models.Track, error) {
	query := `
		SELECT id, name, duration_ms, album_id, artist_ids, popularity, external_id, features, blacklisted
		FROM tracks
		WHERE id = ?
	`
	track, err := scanTrack(r.store.DB().QueryRow(query, id))
	if err != nil {
		return nil, err
	}
	return track, nil
}

// Tracks loads every cached track ordered by ID.
func (r *CacheRepository) Tracks() ([]models.Track, error) {
	query := `
		SELECT id, name, duration_ms, album_id, artist_ids, popularity, external_id, features, blacklisted
		FROM tracks
		ORDER BY id
	`
	rows, err := r.store.DB().Query(query)
	if err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}
	if err := rows.Err(); err != nil {
		return nil, &shared.StorageError{Statement: -1, Query: query, Err: err}
	}
	return tracks, nil
}

// TracksByIDs loads the cached tracks for the given IDs, preserving the
// input order and skipping IDs not in the cache.
func (r *CacheRepository) TracksByIDs(ids []string) ([]models.Track, error) {
	tracks := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		track, err := r.Track(id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		tracks = append(tracks, *track)
	}
	return tracks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var (
		t         models.Track
		albumID   sql.NullString
		artistIDs string
		external  sql.NullString
		features  sql.NullString
	)

	err := row.Scan(&t.ID, &t.Name, &t.DurationMS, &albumID, &artistIDs, &t.Popularity, &external, &features, &t.Blacklisted)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: track", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	t.AlbumID = albumID.String
	t.ArtistIDs = decodeList(artistIDs)
	t.ExternalID = external.String
	if features.Valid && features.String != "" {
		var f models.AudioFeatures
		if err := json.Unmarshal([]byte(features.String), &f); err == nil {
			t.Features = &f
		}
	}
	return &t, nil
}

// SaveAlbums upserts albums in one transaction.
func (r *CacheRepository) SaveAlbums(albums []models.Album) error {
	batch := make([]BatchQuery, 0, len(albums))
	for _, a := range albums {
		batch = append(batch, BatchQuery{
			Query: `
				INSERT OR REPLACE INTO albums (id, name, artist_ids, release_date, track_ids, popularity, blacklisted, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			`,
			Args: []any{a.ID, a.Name, encodeList(a.ArtistIDs), a.ReleaseDate, encodeList(a.TrackIDs), a.Popularity, a.Blacklisted},
		})
	}
	return r.store.ExecBatch(batch)
}

// Album loads a cached album by remote ID.
func (r *CacheRepository) Album(id string) (*models.Album, error) {
	row, err := r.store.FetchRow("SELECT * FROM albums WHERE id = ?", id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: album", shared.ErrNotFound)
		}
		return nil, err
	}

	a := models.Album{
		ID:          stringOf(row["id"]),
		Name:        stringOf(row["name"]),
		ArtistIDs:   decodeList(row["artist_ids"]),
		ReleaseDate: stringOf(row["release_date"]),
		TrackIDs:    decodeList(row["track_ids"]),
		Popularity:  intOf(row["popularity"]),
		Blacklisted: boolOf(row["blacklisted"]),
	}
	return &a, nil
}

// SaveArtists upserts artists in one transaction.
func (r *CacheRepository) SaveArtists(artists []models.Artist) error {
	batch := make([]BatchQuery, 0, len(artists))
	for _, a := range artists {
		genres, err := json.Marshal(a.Genres)
		if err != nil {
			return fmt.Errorf("failed to encode genres for %s: %w", a.ID, err)
		}
		batch = append(batch, BatchQuery{
			Query: `
				INSERT OR REPLACE INTO artists (id, name, genres, popularity, blacklisted, updated_at)
				VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			`,
			Args: []any{a.ID, a.Name, string(genres), a.Popularity, a.Blacklisted},
		})
	}
	return r.store.ExecBatch(batch)
}

// Artist loads a cached artist by remote ID.
func (r *CacheRepository) Artist(id string) (*models.Artist, error) {
	row, err := r.store.FetchRow("SELECT * FROM artists WHERE id = ?", id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: artist", shared.ErrNotFound)
		}
		return nil, err
	}

	a := models.Artist{
		ID:          stringOf(row["id"]),
		Name:        stringOf(row["name"]),
		Genres:      decodeList(row["genres"]),
		Popularity:  intOf(row["popularity"]),
		Blacklisted: boolOf(row["blacklisted"]),
	}
	return &a, nil
}

// Artists loads cached artists for the given IDs, skipping unknown ones.
func (r *CacheRepository) Artists(ids []string) ([]models.Artist, error) {
	artists := make([]models.Artist, 0, len(ids))
	for _, id := range ids {
		artist, err := r.Artist(id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		artists = append(artists, *artist)
	}
	return artists, nil
}

// SavePlaylist upserts the playlist row and replaces its full track
// sequence in one transaction. The position column is the sole ordering
// source, so membership is always rewritten wholesale.
func (r *CacheRepository) SavePlaylist(p models.Playlist) error {
	batch := []BatchQuery{
		{
			Query: `
				INSERT OR REPLACE INTO playlists (id, name, description, owner_id, public, snapshot_id, blacklisted, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			`,
			Args: []any{p.ID, p.Name, p.Description, p.OwnerID, p.Public, p.SnapshotID, p.Blacklisted},
		},
		{
			Query: "DELETE FROM playlist_tracks WHERE playlist_id = ?",
			Args:  []any{p.ID},
		},
	}

	for i, trackID := range p.TrackIDs {
		batch = append(batch, BatchQuery{
			Query: "INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)",
			Args:  []any{p.ID, trackID, i},
		})
	}

	return r.store.ExecBatch(batch)
}

// Playlist loads a cached playlist with its ordered track sequence.
func (r *CacheRepository) Playlist(id string) (*models.Playlist, error) {
	row, err := r.store.FetchRow("SELECT * FROM playlists WHERE id = ?", id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: playlist", shared.ErrNotFound)
		}
		return nil, err
	}

	p := models.Playlist{
		ID:          stringOf(row["id"]),
		Name:        stringOf(row["name"]),
		Description: stringOf(row["description"]),
		OwnerID:     stringOf(row["owner_id"]),
		Public:      boolOf(row["public"]),
		SnapshotID:  stringOf(row["snapshot_id"]),
		Blacklisted: boolOf(row["blacklisted"]),
	}

	trackIDs, err := r.PlaylistTrackIDs(id)
	if err != nil {
		return nil, err
	}
	p.TrackIDs = trackIDs
	return &p, nil
}

// PlaylistTrackIDs returns the playlist's track sequence in position order.
func (r *CacheRepository) PlaylistTrackIDs(id string) ([]string, error) {
	values, err := r.store.FetchColumn(
		"SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		ids = append(ids, stringOf(v))
	}
	return ids, nil
}

// Playlists loads every cached playlist with its track sequence.
func (r *CacheRepository) Playlists() ([]models.Playlist, error) {
	values, err := r.store.FetchColumn("SELECT id FROM playlists ORDER BY name")
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(values))
	for _, v := range values {
		p, err := r.Playlist(stringOf(v))
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}
	return playlists, nil
}

// SaveDevices replaces the cached device list. Devices are ephemeral on the
// remote side, so stale rows are removed rather than kept.
func (r *CacheRepository) SaveDevices(devices []models.Device) error {
	batch := []BatchQuery{{Query: "DELETE FROM devices"}}
	for _, d := range devices {
		batch = append(batch, BatchQuery{
			Query: `
				INSERT INTO devices (id, name, type, active, updated_at)
				VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			`,
			Args: []any{d.ID, d.Name, d.Type, d.Active},
		})
	}
	return r.store.ExecBatch(batch)
}

// Devices loads the cached device list.
func (r *CacheRepository) Devices() ([]models.Device, error) {
	rows, err := r.store.FetchRows("SELECT id, name, type, active FROM devices ORDER BY name")
	if err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, models.Device{
			ID:     stringOf(row["id"]),
			Name:   stringOf(row["name"]),
			Type:   stringOf(row["type"]),
			Active: boolOf(row["active"]),
		})
	}
	return devices, nil
}

// SaveUser upserts the account row.
func (r *CacheRepository) SaveUser(u models.User) error {
	return r.store.AddItemToTable("users", map[string]any{
		"id":           u.ID,
		"display_name": u.DisplayName,
	})
}

// User loads a cached user by ID.
func (r *CacheRepository) User(id string) (*models.User, error) {
	row, err := r.store.FetchRow("SELECT id, display_name FROM users WHERE id = ?", id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: user", shared.ErrNotFound)
		}
		return nil, err
	}
	return &models.User{ID: stringOf(row["id"]), DisplayName: stringOf(row["display_name"])}, nil
}

// SetBlacklisted toggles the blacklist flag on a cached entity.
func (r *CacheRepository) SetBlacklisted(entity models.EntityType, id string, blacklisted bool) error {
	if !entity.Valid() || entity == models.EntityDevice || entity == models.EntityUser {
		return &shared.InputError{Field: "entity", Value: string(entity), Want: "track|album|artist|playlist"}
	}

	affected, err := r.store.ExecQuery(
		fmt.Sprintf("UPDATE %s SET blacklisted = ? WHERE id = ?", entity.Table()),
		blacklisted, id,
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, entity, id)
	}
	return nil
}

func stringOf(v any) string {
	s, _ := asString(v)
	return s
}

func intOf(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func boolOf(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	}
	return false
}

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, shared.ErrNotFound)
}
