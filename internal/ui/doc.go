// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow over the local mirror:
//  1. [PlaylistListView] : Browse cached playlists
//  2. [TrackListView] : Inspect a playlist with pending edits overlaid
//  3. [QueueView] : Watch queued changes update live as they flush
//  4. [FlushView] : Monitor flush progress
//  5. [ResultView] : Display per-target flush outcomes
//
// The [Model] implements bubbletea's standard Init/Update/View pattern.
// Queue change notifications arrive through the engine's subscription
// channel so the queue view reflects coalescing and status transitions
// as they happen.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, f, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
