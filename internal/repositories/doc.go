// package repositories provides the persistence layer over SQLite.
//
// The Store exposes parameterized query helpers and all-or-nothing batch
// execution. CacheRepository mirrors last-confirmed remote state per entity
// table, QueueRepository persists pending mutations, and TokenRepository
// keeps credentials across restarts. Cache rows are written only after a
// confirmed remote success; queue rows are the only speculative state.
package repositories
