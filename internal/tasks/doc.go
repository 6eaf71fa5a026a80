// package tasks implements the reconciliation engine over the change queue.
//
// The core abstraction is Engine, which buffers edits locally, coalesces
// them per target, and flushes pending operations to the remote service in
// sequence order. The cache is written only after the remote service
// confirms a change; a failed flush leaves the cache untouched and marks
// the failing operations for inspection.
//
// Long-running operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers, and queue state changes
// fan out to subscribers the same way.
package tasks
