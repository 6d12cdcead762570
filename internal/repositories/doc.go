// Package repositories implements SQLite persistence for the domain entities.
//
// Key Implementations:
//   - [UserRepository] : Account persistence with username and email lookups
//   - [DownloadRepository] : The request ledger, one row per download attempt with status tracking
//
// The ledger guards status transitions in SQL (UPDATE ... WHERE status = 'downloading') so a record can
// never leave a terminal state, and the schema enforces that a filename is present exactly when the
// status is completed. Lookups used for authorization return [shared.ErrNotFound] for every kind of miss.
//
// Sequence numbers provide stable, human-readable ordering for users independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
