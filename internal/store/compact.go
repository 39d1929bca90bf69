package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Squash folds a document's entire raw update history into a single
// full-state row, immediately. Append runs the same pass automatically when
// the document's idle gap exceeds the TTL; this method exists for on-demand
// maintenance. Returns ErrNotFound if the document has no update rows.
func (s *Store) Squash(ctx context.Context, path string) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	path = canonicalPath(path)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("squash: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.squashTx(ctx, tx, path, s.timestamp()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("squash: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("squash: commit: %w", err)
	}
	return nil
}

// Checkpoint refreshes a document's checkpoint immediately, independent of
// the append-count cadence. Unlike Squash this never deletes update rows.
// Returns ErrNotFound if the document does not exist.
func (s *Store) Checkpoint(ctx context.Context, path string) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	path = canonicalPath(path)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("checkpoint: begin tx: %w", err)
	}
	defer tx.Rollback()

	exists, err := documentExistsTx(ctx, tx, path)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	if err := s.checkpointTx(ctx, tx, path, s.timestamp()); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("checkpoint: commit: %w", err)
	}
	return nil
}

// squashTx replays the whole log for a document into a fresh replica,
// deletes the log rows, and appends one row holding the replica's full
// state. Afterwards the document's log holds exactly one row. Returns the
// number of rows folded, or ErrNotFound when there was nothing to fold.
func (s *Store) squashTx(ctx context.Context, tx *sql.Tx, path string, ts float64) (folded int, err error) {
	doc := s.newDoc()

	rows, err := tx.QueryContext(ctx, `
		SELECT payload FROM doc_updates
		WHERE path = ?
		ORDER BY timestamp ASC, id ASC
	`, path)
	if err != nil {
		return 0, fmt.Errorf("squash query: %w", err)
	}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("squash scan: %w", err)
		}
		if err := doc.ApplyUpdate(s.decode(payload)); err != nil {
			rows.Close()
			return 0, fmt.Errorf("squash replay: %w", err)
		}
		folded++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("squash iterate: %w", err)
	}
	rows.Close()

	if folded == 0 {
		return 0, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM doc_updates WHERE path = ?`, path); err != nil {
		return 0, fmt.Errorf("squash delete history: %w", err)
	}

	snapshot, err := doc.Snapshot()
	if err != nil {
		return 0, fmt.Errorf("squash snapshot: %w", err)
	}
	if err := s.insertUpdateTx(ctx, tx, path, snapshot, ts); err != nil {
		return 0, fmt.Errorf("squash insert: %w", err)
	}

	s.log.Debug("squashed document history", "path", path, "folded", folded)
	return folded, nil
}

// checkpointTx loads the current checkpoint (if any), replays every update
// past its (timestamp, covered_id) coverage, and upserts the result as the
// new checkpoint. The raw log is left alone; the checkpoint only shortens
// reconstruction.
func (s *Store) checkpointTx(ctx context.Context, tx *sql.Tx, path string, ts float64) error {
	doc := s.newDoc()

	var floor float64
	var covered int64
	var snapshot []byte
	err := tx.QueryRowContext(ctx, `
		SELECT snapshot, timestamp, covered_id FROM doc_checkpoints WHERE path = ?
	`, path).Scan(&snapshot, &floor, &covered)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First checkpoint for this document; replay from the beginning.
	case err != nil:
		return fmt.Errorf("checkpoint load: %w", err)
	default:
		if err := doc.ApplyUpdate(s.decode(snapshot)); err != nil {
			return fmt.Errorf("checkpoint replay snapshot: %w", err)
		}
	}

	// Coverage is a (timestamp, id) pair: rows tied at the floor timestamp
	// are covered only up to covered_id.
	rows, err := tx.QueryContext(ctx, `
		SELECT id, payload FROM doc_updates
		WHERE path = ? AND (timestamp > ? OR (timestamp = ? AND id > ?))
		ORDER BY timestamp ASC, id ASC
	`, path, floor, floor, covered)
	if err != nil {
		return fmt.Errorf("checkpoint query tail: %w", err)
	}
	for rows.Next() {
		var id int64
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			rows.Close()
			return fmt.Errorf("checkpoint scan: %w", err)
		}
		if err := doc.ApplyUpdate(s.decode(payload)); err != nil {
			rows.Close()
			return fmt.Errorf("checkpoint replay update: %w", err)
		}
		if id > covered {
			covered = id
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("checkpoint iterate: %w", err)
	}
	rows.Close()

	next, err := doc.Snapshot()
	if err != nil {
		return fmt.Errorf("checkpoint snapshot: %w", err)
	}
	payload, err := s.codec.Compress(next)
	if err != nil {
		return fmt.Errorf("checkpoint compress: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO doc_checkpoints (path, snapshot, timestamp, covered_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			snapshot = excluded.snapshot,
			timestamp = excluded.timestamp,
			covered_id = excluded.covered_id
	`, path, payload, ts, covered)
	if err != nil {
		return fmt.Errorf("checkpoint upsert: %w", err)
	}

	s.log.Debug("refreshed checkpoint", "path", path, "timestamp", ts)
	return nil
}

// documentExistsTx reports whether a document has any checkpoint or update
// rows. A document with neither is considered non-existent, not empty.
func documentExistsTx(ctx context.Context, tx *sql.Tx, path string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM doc_updates WHERE path = ?)
		    OR EXISTS(SELECT 1 FROM doc_checkpoints WHERE path = ?)
	`, path, path).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("document exists: %w", err)
	}
	return exists, nil
}
