// Package sqlite provides a unified SQLite-based implementation of the
// storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: mirrored documents keyed by (connection, id)
//   - SyncStore: sync records and history
//   - StepLedger: completed job steps replayed on retry
//   - ConnectionStore: registered provider connections
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// A partial unique index allows one in-progress sync per connection.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-sync/data/sync.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
