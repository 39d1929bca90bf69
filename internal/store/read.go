package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/qstore/internal/crdt"
)

// Entry is one update row as handed to callers: the (best-effort
// decompressed) update bytes, the metadata stamped at write time, and the
// wall-clock timestamp in fractional seconds.
type Entry struct {
	Update    []byte
	Metadata  []byte
	Timestamp float64
}

// History returns every raw update row for a document in (timestamp, id)
// order, ignoring checkpoints. Returns ErrNotFound if the document has no
// update rows. A payload the codec cannot decode is returned as stored; it
// does not abort retrieval of the other rows.
func (s *Store) History(ctx context.Context, path string) ([]Entry, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	path = canonicalPath(path)

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload, metadata, timestamp FROM doc_updates
		WHERE path = ?
		ORDER BY timestamp ASC, id ASC
	`, path)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var payload []byte
		if err := rows.Scan(&payload, &e.Metadata, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Update = s.decode(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate: %w", err)
	}

	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

// Reconstruct applies a document's state to doc: the latest checkpoint (if
// any) followed by every update past the checkpoint's (timestamp,
// covered_id) coverage, in (timestamp, id) order. Returns ErrNotFound if
// neither a checkpoint nor any update exists.
func (s *Store) Reconstruct(ctx context.Context, path string, doc crdt.Document) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	path = canonicalPath(path)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reconstruct: begin tx: %w", err)
	}
	defer tx.Rollback()

	found := false
	var floor float64
	var covered int64
	var snapshot []byte
	err = tx.QueryRowContext(ctx, `
		SELECT snapshot, timestamp, covered_id FROM doc_checkpoints WHERE path = ?
	`, path).Scan(&snapshot, &floor, &covered)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No checkpoint; replay the full log.
	case err != nil:
		return fmt.Errorf("reconstruct: load checkpoint: %w", err)
	default:
		if err := doc.ApplyUpdate(s.decode(snapshot)); err != nil {
			return fmt.Errorf("reconstruct: apply checkpoint: %w", err)
		}
		found = true
	}

	// Same (timestamp, id) coverage rule as the checkpoint refresh: a row
	// tied at the floor timestamp is part of the tail unless the checkpoint
	// already folded it in.
	rows, err := tx.QueryContext(ctx, `
		SELECT payload FROM doc_updates
		WHERE path = ? AND (timestamp > ? OR (timestamp = ? AND id > ?))
		ORDER BY timestamp ASC, id ASC
	`, path, floor, floor, covered)
	if err != nil {
		return fmt.Errorf("reconstruct: query tail: %w", err)
	}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			rows.Close()
			return fmt.Errorf("reconstruct: scan: %w", err)
		}
		if err := doc.ApplyUpdate(s.decode(payload)); err != nil {
			rows.Close()
			return fmt.Errorf("reconstruct: apply update: %w", err)
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("reconstruct: iterate: %w", err)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reconstruct: commit: %w", err)
	}

	if !found {
		return ErrNotFound
	}
	return nil
}

// decode undoes payload compression. Rows written before a codec was
// configured, or by a different codec, fail to decode; those bytes are
// returned as stored and left for the CRDT engine to judge downstream.
func (s *Store) decode(payload []byte) []byte {
	raw, err := s.codec.Decompress(payload)
	if err != nil {
		return payload
	}
	return raw
}
