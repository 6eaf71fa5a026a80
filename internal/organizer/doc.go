// Package organizer implements the pure playlist transformation algorithms:
// duplicate removal, chunking for batch API calls, and the shuffle
// strategies (plain and genre-weighted).
//
// Every function is deterministic for a fixed seed; nothing here touches
// the network or the cache.
package organizer
