package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Append stores one update for a document.
//
// The whole sequence runs in a single transaction: either the update (plus
// any squash and checkpoint work it triggered) lands atomically, or nothing
// does.
//
// In order:
//  1. If the gap since the document's most recent update exceeds the
//     configured TTL, the entire history is squashed first so this update
//     lands on a freshly compacted base.
//  2. The payload is compressed and inserted with the current timestamp.
//  3. Every CheckpointInterval appends, the checkpoint is refreshed.
func (s *Store) Append(ctx context.Context, path string, update []byte) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	path = canonicalPath(path)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var last float64
	hasHistory := true
	err = tx.QueryRowContext(ctx, `
		SELECT timestamp FROM doc_updates
		WHERE path = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, path).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		hasHistory = false
	} else if err != nil {
		return fmt.Errorf("append: last timestamp: %w", err)
	}

	now := s.timestamp()

	if ttl := s.cfg.DocumentTTL; ttl > 0 && hasHistory && now-last > ttl.Seconds() {
		if _, err := s.squashTx(ctx, tx, path, now); err != nil {
			return fmt.Errorf("append: %w", err)
		}
	}

	if err := s.insertUpdateTx(ctx, tx, path, update, now); err != nil {
		return fmt.Errorf("append: %w", err)
	}

	s.counters[path]++
	if s.counters[path] >= s.checkpointInterval() {
		if err := s.checkpointTx(ctx, tx, path, now); err != nil {
			return fmt.Errorf("append: %w", err)
		}
		s.counters[path] = 0
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}
	return nil
}

// insertUpdateTx compresses a payload and appends it to the log. Compression
// failures are terminal for the write; only decompression is best-effort.
func (s *Store) insertUpdateTx(ctx context.Context, tx *sql.Tx, path string, update []byte, ts float64) error {
	payload, err := s.codec.Compress(update)
	if err != nil {
		return fmt.Errorf("compress update: %w", err)
	}
	meta, err := s.metadata(ctx)
	if err != nil {
		return fmt.Errorf("metadata callback: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO doc_updates (path, payload, metadata, timestamp)
		VALUES (?, ?, ?, ?)
	`, path, payload, meta, ts)
	if err != nil {
		return fmt.Errorf("insert update: %w", err)
	}
	return nil
}
