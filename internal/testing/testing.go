// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/services"
)

// MockService is a test double for [services.Service]. Each method delegates
// to the matching function field when set and returns zero values otherwise,
// recording every call in Calls.
type MockService struct {
	Calls []string

	MeFunc                    func(ctx context.Context) (*models.User, error)
	TrackFunc                 func(ctx context.Context, id string) (*models.Track, error)
	SeveralTracksFunc         func(ctx context.Context, ids []string) ([]models.Track, error)
	AlbumFunc                 func(ctx context.Context, id string) (*models.Album, error)
	SeveralAlbumsFunc         func(ctx context.Context, ids []string) ([]models.Album, error)
	ArtistFunc                func(ctx context.Context, id string) (*models.Artist, error)
	SeveralArtistsFunc        func(ctx context.Context, ids []string) ([]models.Artist, error)
	PlaylistFunc              func(ctx context.Context, id string) (*models.Playlist, error)
	PlaylistTracksFunc        func(ctx context.Context, id string) ([]models.Track, error)
	UserPlaylistsFunc         func(ctx context.Context) ([]models.Playlist, error)
	SavedTracksFunc           func(ctx context.Context) ([]models.Track, error)
	DevicesFunc               func(ctx context.Context) ([]models.Device, error)
	AudioFeaturesFunc         func(ctx context.Context, ids []string) (map[string]models.AudioFeatures, error)
	CreatePlaylistFunc        func(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error)
	ChangePlaylistDetailsFunc func(ctx context.Context, id string, details services.PlaylistDetails) error
	AddPlaylistItemsFunc      func(ctx context.Context, id string, uris []string) error
	RemovePlaylistItemsFunc   func(ctx context.Context, id string, uris []string) error
	ReplacePlaylistItemsFunc  func(ctx context.Context, id string, uris []string) error
	SaveTracksFunc            func(ctx context.Context, ids []string) error
	RemoveSavedTracksFunc     func(ctx context.Context, ids []string) error
	FollowArtistsFunc         func(ctx context.Context, ids []string) error
	UnfollowArtistsFunc       func(ctx context.Context, ids []string) error
	TransferPlaybackFunc      func(ctx context.Context, deviceID string) error
}

var _ services.Service = (*MockService)(nil)

func (m *MockService) record(call string) {
	m.Calls = append(m.Calls, call)
}

func (m *MockService) Me(ctx context.Context) (*models.User, error) {
	m.record("Me")
	if m.MeFunc != nil {
		return m.MeFunc(ctx)
	}
	return &models.User{ID: "mock-user"}, nil
}

func (m *MockService) Track(ctx context.Context, id string) (*models.Track, error) {
	m.record("Track")
	if m.TrackFunc != nil {
		return m.TrackFunc(ctx, id)
	}
	return &models.Track{ID: id}, nil
}

func (m *MockService) SeveralTracks(ctx context.Context, ids []string) ([]models.Track, error) {
	m.record("SeveralTracks")
	if m.SeveralTracksFunc != nil {
		return m.SeveralTracksFunc(ctx, ids)
	}
	tracks := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, models.Track{ID: id})
	}
	return tracks, nil
}

func (m *MockService) Album(ctx context.Context, id string) (*models.Album, error) {
	m.record("Album")
	if m.AlbumFunc != nil {
		return m.AlbumFunc(ctx, id)
	}
	return &models.Album{ID: id}, nil
}

func (m *MockService) SeveralAlbums(ctx context.Context, ids []string) ([]models.Album, error) {
	m.record("SeveralAlbums")
	if m.SeveralAlbumsFunc != nil {
		return m.SeveralAlbumsFunc(ctx, ids)
	}
	albums := make([]models.Album, 0, len(ids))
	for _, id := range ids {
		albums = append(albums, models.Album{ID: id})
	}
	return albums, nil
}

func (m *MockService) Artist(ctx context.Context, id string) (*models.Artist, error) {
	m.record("Artist")
	if m.ArtistFunc != nil {
		return m.ArtistFunc(ctx, id)
	}
	return &models.Artist{ID: id}, nil
}

func (m *MockService) SeveralArtists(ctx context.Context, ids []string) ([]models.Artist, error) {
	m.record("SeveralArtists")
	if m.SeveralArtistsFunc != nil {
		return m.SeveralArtistsFunc(ctx, ids)
	}
	artists := make([]models.Artist, 0, len(ids))
	for _, id := range ids {
		artists = append(artists, models.Artist{ID: id})
	}
	return artists, nil
}

func (m *MockService) Playlist(ctx context.Context, id string) (*models.Playlist, error) {
	m.record("Playlist")
	if m.PlaylistFunc != nil {
		return m.PlaylistFunc(ctx, id)
	}
	return &models.Playlist{ID: id}, nil
}

func (m *MockService) PlaylistTracks(ctx context.Context, id string) ([]models.Track, error) {
	m.record("PlaylistTracks")
	if m.PlaylistTracksFunc != nil {
		return m.PlaylistTracksFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockService) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	m.record("UserPlaylists")
	if m.UserPlaylistsFunc != nil {
		return m.UserPlaylistsFunc(ctx)
	}
	return nil, nil
}

func (m *MockService) SavedTracks(ctx context.Context) ([]models.Track, error) {
	m.record("SavedTracks")
	if m.SavedTracksFunc != nil {
		return m.SavedTracksFunc(ctx)
	}
	return nil, nil
}

func (m *MockService) Devices(ctx context.Context) ([]models.Device, error) {
	m.record("Devices")
	if m.DevicesFunc != nil {
		return m.DevicesFunc(ctx)
	}
	return nil, nil
}

func (m *MockService) AudioFeatures(ctx context.Context, ids []string) (map[string]models.AudioFeatures, error) {
	m.record("AudioFeatures")
	if m.AudioFeaturesFunc != nil {
		return m.AudioFeaturesFunc(ctx, ids)
	}
	return map[string]models.AudioFeatures{}, nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	m.record("CreatePlaylist")
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, userID, name, description, public)
	}
	return &models.Playlist{Name: name, Description: description, OwnerID: userID, Public: public}, nil
}

func (m *MockService) ChangePlaylistDetails(ctx context.Context, id string, details services.PlaylistDetails) error {
	m.record("ChangePlaylistDetails")
	if m.ChangePlaylistDetailsFunc != nil {
		return m.ChangePlaylistDetailsFunc(ctx, id, details)
	}
	return nil
}

func (m *MockService) AddPlaylistItems(ctx context.Context, id string, uris []string) error {
	m.record("AddPlaylistItems")
	if m.AddPlaylistItemsFunc != nil {
		return m.AddPlaylistItemsFunc(ctx, id, uris)
	}
	return nil
}

func (m *MockService) RemovePlaylistItems(ctx context.Context, id string, uris []string) error {
	m.record("RemovePlaylistItems")
	if m.RemovePlaylistItemsFunc != nil {
		return m.RemovePlaylistItemsFunc(ctx, id, uris)
	}
	return nil
}

func (m *MockService) ReplacePlaylistItems(ctx context.Context, id string, uris []string) error {
	m.record("ReplacePlaylistItems")
	if m.ReplacePlaylistItemsFunc != nil {
		return m.ReplacePlaylistItemsFunc(ctx, id, uris)
	}
	return nil
}

func (m *MockService) SaveTracks(ctx context.Context, ids []string) error {
	m.record("SaveTracks")
	if m.SaveTracksFunc != nil {
		return m.SaveTracksFunc(ctx, ids)
	}
	return nil
}

func (m *MockService) RemoveSavedTracks(ctx context.Context, ids []string) error {
	m.record("RemoveSavedTracks")
	if m.RemoveSavedTracksFunc != nil {
		return m.RemoveSavedTracksFunc(ctx, ids)
	}
	return nil
}

func (m *MockService) FollowArtists(ctx context.Context, ids []string) error {
	m.record("FollowArtists")
	if m.FollowArtistsFunc != nil {
		return m.FollowArtistsFunc(ctx, ids)
	}
	return nil
}

func (m *MockService) UnfollowArtists(ctx context.Context, ids []string) error {
	m.record("UnfollowArtists")
	if m.UnfollowArtistsFunc != nil {
		return m.UnfollowArtistsFunc(ctx, ids)
	}
	return nil
}

func (m *MockService) TransferPlayback(ctx context.Context, deviceID string) error {
	m.record("TransferPlayback")
	if m.TransferPlaybackFunc != nil {
		return m.TransferPlaybackFunc(ctx, deviceID)
	}
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
