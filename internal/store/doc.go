// Package store is the persistence boundary for the scan log.
//
// Two implementations share the Boundary contract:
//
//   - SQLite: one row per Entry, whole-log replace inside a transaction
//   - File: one JSON document, replaced atomically via temp file and rename
//
// Both guarantee that a failed Save leaves the previous log readable. Both
// read the legacy single-scan-per-entry JSON array and upgrade it once.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - schema versioned through PRAGMA user_version
//
// Load order is the saved order: ORDER BY position ASC, id ASC COLLATE BINARY.
package store
