// Package tasks orchestrates the synchronous download workflow and guards access to its results.
//
// # Core Operations
//
//  1. [Materializer.Materialize] : One download attempt inside a single request
//     - Probes the URL for a title before anything is recorded
//     - Records the attempt in the ledger as downloading
//     - Extracts into a per-attempt scratch directory under a fresh base name
//     - Locates the output, promotes it into storage, and marks the record completed
//     - Marks the record failed on any error after it was created
//
//  2. [Gate.Authorize] : Owner-only access to stored files
//     - Requires a completed ledger record matching both owner and filename
//     - Treats a missing file as a miss rather than an internal error
//
// # Progress Reporting
//
// [Materializer.Run] accepts an optional channel of [ProgressUpdate] values, one per [Phase].
// Updates use select with default so that a slow reader never stalls a download.
//
// # Resource Lifecycle
//
// The scratch directory is removed exactly once on every exit path; cleanup failures are logged
// and never returned. Each attempt is bounded by a timeout derived from the caller's context, so
// a client disconnect also stops the extractor.
package tasks
