// Package store persists NPTT run history in SQLite.
//
// Three tables record every orchestrated run: runs (one row per
// dataset run), step_timings (per-step wall clock and completion), and
// test_results (one row per executed check). The report command reads
// this history to render summaries without re-running anything.
//
// The database uses WAL mode with a single-writer connection pool, the
// arrangement that keeps SQLITE_BUSY out of concurrent readers.
package store
