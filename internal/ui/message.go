package ui

import (
	"github.com/spotmirror/spotmirror/internal/formatter"
	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/tasks"
)

// playlistsLoadedMsg carries the cached playlists with pending-edit counts.
type playlistsLoadedMsg struct {
	playlists []models.Playlist
	pending   map[string]int
	err       error
}

// tracksLoadedMsg carries a single playlist resolved for display, with
// pending edits already overlaid.
type tracksLoadedMsg struct {
	playlist models.Playlist
	tracks   []formatter.TrackRow
	err      error
}

// queueLoadedMsg carries the current queue contents in sequence order.
type queueLoadedMsg struct {
	ops []models.Operation
	err error
}

// changeEventMsg wraps an engine change notification.
type changeEventMsg tasks.ChangeEvent

// flushProgressMsg wraps a progress update emitted during a flush.
type flushProgressMsg tasks.ProgressUpdate

// flushCompleteMsg carries the per-target outcomes of a finished flush.
type flushCompleteMsg struct {
	outcomes []tasks.FlushOutcome
	err      error
}
