package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spotmirror/spotmirror/internal/formatter"
	"github.com/spotmirror/spotmirror/internal/models"
	"github.com/spotmirror/spotmirror/internal/repositories"
	"github.com/spotmirror/spotmirror/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	QueueView
	FlushView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.Engine
	cache        *repositories.CacheRepository
	queue        *repositories.QueueRepository
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	selected     models.Playlist
	ops          []models.Operation
	events       <-chan tasks.ChangeEvent
	cancelSub    func()
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	outcomes     []tasks.FlushOutcome
	flushErr     error
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *tasks.Engine, cache *repositories.CacheRepository, queue *repositories.QueueRepository) *Model {
	events, cancel := engine.Subscribe()
	return &Model{
		ctx:       ctx,
		view:      PlaylistListView,
		engine:    engine,
		cache:     cache,
		queue:     queue,
		events:    events,
		cancelSub: cancel,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads the cached playlists and starts listening for queue changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadPlaylists(), m.waitForChange())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case QueueView:
			return m.handleQueueKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl, pending: msg.pending[pl.ID]}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case tracksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, nil
		}
		m.selected = msg.playlist
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.playlist.Name)
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case queueLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.ops = msg.ops
		m.view = QueueView
		return m, nil

	case changeEventMsg:
		cmds := []tea.Cmd{m.waitForChange()}
		if m.view == QueueView {
			cmds = append(cmds, m.loadQueue())
		}
		return m, tea.Batch(cmds...)

	case flushProgressMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case flushCompleteMsg:
		m.outcomes = msg.outcomes
		m.flushErr = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case QueueView:
		return m.renderQueue()
	case FlushView:
		return m.renderFlush()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Close releases the engine subscription.
func (m *Model) Close() {
	if m.cancelSub != nil {
		m.cancelSub()
		m.cancelSub = nil
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "Q":
		return m, m.loadQueue()
	case "enter":
		selected := m.playlistList.SelectedItem()
		if selected != nil {
			if pl, ok := selected.(playlistItem); ok {
				return m, m.loadTracks(pl.playlist.ID)
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "esc":
		m.view = PlaylistListView
		return m, m.loadPlaylists()
	case "Q":
		return m, m.loadQueue()
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "esc":
		m.view = PlaylistListView
		return m, m.loadPlaylists()
	case "f":
		m.view = FlushView
		return m, m.startFlush()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "r":
		m.view = PlaylistListView
		m.outcomes = nil
		m.flushErr = nil
		m.err = nil
		return m, m.loadPlaylists()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.cache.Playlists()
		if err != nil {
			return playlistsLoadedMsg{err: err}
		}

		pending := map[string]int{}
		ops, err := m.queue.Operations(models.StatusPending)
		if err != nil {
			return playlistsLoadedMsg{err: err}
		}
		for _, op := range ops {
			if op.TargetType == models.EntityPlaylist {
				pending[op.TargetID]++
			}
		}
		return playlistsLoadedMsg{playlists: playlists, pending: pending}
	}
}

// loadTracks resolves a playlist for display with pending edits overlaid.
// Tracks missing from the cache render with their raw ID so a playlist
// edited before its tracks were mirrored is still browsable.
func (m *Model) loadTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		view, err := m.engine.FetchView(playlistID)
		if err != nil {
			return tracksLoadedMsg{err: err}
		}

		byID := map[string]models.Track{}
		cached, err := m.cache.TracksByIDs(view.Playlist.TrackIDs)
		if err != nil {
			return tracksLoadedMsg{err: err}
		}
		artistIDs := make([]string, 0, len(cached))
		seen := map[string]bool{}
		for _, t := range cached {
			byID[t.ID] = t
			for _, id := range t.ArtistIDs {
				if !seen[id] {
					seen[id] = true
					artistIDs = append(artistIDs, id)
				}
			}
		}

		artists := map[string]models.Artist{}
		if len(artistIDs) > 0 {
			resolved, err := m.cache.Artists(artistIDs)
			if err != nil {
				return tracksLoadedMsg{err: err}
			}
			for _, a := range resolved {
				artists[a.ID] = a
			}
		}

		albums := map[string]models.Album{}
		for _, t := range cached {
			if t.AlbumID == "" || albums[t.AlbumID].ID != "" {
				continue
			}
			if al, err := m.cache.Album(t.AlbumID); err == nil {
				albums[al.ID] = *al
			}
		}

		ordered := make([]models.Track, 0, len(view.Playlist.TrackIDs))
		for _, id := range view.Playlist.TrackIDs {
			if t, ok := byID[id]; ok {
				ordered = append(ordered, t)
			} else {
				ordered = append(ordered, models.Track{ID: id, Name: id})
			}
		}

		export := formatter.BuildExport(view.Playlist, ordered, artists, albums)
		return tracksLoadedMsg{playlist: view.Playlist, tracks: export.Tracks}
	}
}

func (m *Model) loadQueue() tea.Cmd {
	return func() tea.Msg {
		ops, err := m.queue.Operations(models.StatusPending, models.StatusInFlight, models.StatusFailed)
		return queueLoadedMsg{ops: ops, err: err}
	}
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return nil
		}
		return changeEventMsg(event)
	}
}

func (m *Model) startFlush() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progress := m.progressChan

	go func() {
		outcomes, err := m.engine.Flush(m.ctx, progress)
		m.outcomes = outcomes
		m.flushErr = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return flushCompleteMsg{outcomes: m.outcomes, err: m.flushErr}
		}

		update, ok := <-m.progressChan
		if !ok {
			return flushCompleteMsg{outcomes: m.outcomes, err: m.flushErr}
		}
		return flushProgressMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.queue, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.queue, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderQueue() string {
	title := styles.title.Render("Change Queue")

	body := "Queue is empty"
	if len(m.ops) > 0 {
		body = string(formatter.FormatQueue(m.ops))
	}

	helpKeys := []key.Binding{m.keys.flush, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n%s", title, body, helpView)
}

func (m *Model) renderFlush() string {
	title := styles.title.Render("Flushing Queue")

	var phase string
	switch m.progress.Phase {
	case tasks.FlushQueue:
		phase = fmt.Sprintf("Flushing targets (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ApplyOps:
		phase = fmt.Sprintf("Applying operations (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.WriteCache:
		phase = "Recording confirmed changes..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.dim.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.flushErr != nil {
		return styles.err.Render(fmt.Sprintf("Flush failed: %v\n\nPress r to go back, q to quit", m.flushErr))
	}

	title := styles.ok.Render("✓ Flush Complete")

	var applied, failed, skipped int
	var lines string
	for _, outcome := range m.outcomes {
		applied += len(outcome.Applied)
		failed += len(outcome.Failed)
		if outcome.Skipped {
			skipped++
		}
		if outcome.Err != nil {
			lines += fmt.Sprintf("\n  • %s %s: %v", outcome.TargetType, outcome.TargetID, outcome.Err)
		}
	}

	info := fmt.Sprintf("\nApplied: %d\nFailed: %d\nSkipped targets: %d", applied, failed, skipped)

	var failures string
	if lines != "" {
		failures = fmt.Sprintf("\n\n%s%s", styles.warn.Render("Failures:"), lines)
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failures, helpView)
}
