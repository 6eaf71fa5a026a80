// Package models defines the domain entities mirrored from the Spotify Web
// API and the pending-change types the reconciliation layer operates on.
//
// Entity types (Track, Album, Artist, Playlist, Device, User) carry the
// opaque remote identifier in their ID field. An entity constructed locally
// before its first successful create call simply has an empty ID; there are
// no parallel "new" variants. Once the API assigns an identifier it is
// immutable, only attributes change.
//
// Operation and the queue status constants describe buffered mutations:
// each operation targets one (entity type, entity id) pair, carries a
// monotonically increasing sequence number and moves through
// pending → in-flight → {applied, failed}.
package models
