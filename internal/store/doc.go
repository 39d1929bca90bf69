// Package store provides SQLite-backed durable storage for CRDT document
// updates.
//
// One database file holds the history of many documents, keyed by path:
//   - doc_updates: the append-only update log, the source of truth
//   - doc_checkpoints: one compacted snapshot per document, an acceleration
//     structure for reconstruction (never consulted by History)
//
// # Compaction
//
// Two mechanisms bound log growth:
//   - Checkpoint refresh: every CheckpointInterval appends, the current
//     checkpoint plus the newer log tail is folded into a new checkpoint.
//     Update rows are never deleted; replaying checkpoint + tail must equal
//     replaying the raw log from scratch.
//   - TTL squash: when a document has been idle longer than DocumentTTL, its
//     entire update history is collapsed into a single full-state row before
//     the next update is appended.
//
// # Ordering
//
// Rows are ordered by wall-clock timestamp. Timestamps can collide, so every
// ordered query adds the AUTOINCREMENT row id as a tie-breaker:
// ORDER BY timestamp ASC, id ASC. Ids are never reused, even after a squash
// deletes rows.
//
// Checkpoint coverage follows the same rule: a checkpoint records the
// (timestamp, covered_id) pair of the newest row folded into it, and the
// tail replayed on top is everything lexicographically past that pair. A
// plain timestamp floor would drop rows tied at the checkpoint's timestamp.
//
// # Concurrency
//
// All operations against one file serialize through a single lock. The lock
// is file-scoped, not document-scoped: a write to one document blocks reads
// of every other document in the same file. Startup is guarded by a separate
// one-shot readiness barrier so no operation can race schema creation.
//
// # Database configuration
//
//   - WAL mode, synchronous=NORMAL, busy_timeout=5000
//   - Single-connection pool: SQLite supports one writer at a time
//   - PRAGMA user_version stamps the schema version; an unexpected version
//     archives the file aside and starts fresh
package store
