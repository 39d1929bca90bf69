package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - update log only (pre-checkpoint era)
// 2 - metadata column on the update log
// 3 - checkpoint table
// 4 - covered_id on the checkpoint table
//
// The version is global to the file (PRAGMA user_version). A file stamped
// with any other version is archived aside and a fresh store is created in
// its place. The one exception is a file at the current version that merely
// lacks the checkpoint table: schema.sql upgrades it in place without
// touching its log rows.
const currentSchemaVersion = 4

// initDB implements the schema lifecycle: decide between use-as-is,
// create-fresh, or archive-aside-and-recreate, then open the long-lived
// connection.
func (s *Store) initDB(ctx context.Context) error {
	createFresh := false
	moveAside := false

	if _, err := os.Stat(s.cfg.Path); errors.Is(err, fs.ErrNotExist) {
		createFresh = true
	} else if err != nil {
		return fmt.Errorf("stat %s: %w", s.cfg.Path, err)
	} else {
		createFresh, moveAside, err = probeSchema(ctx, s.cfg.Path)
		if err != nil {
			return err
		}
	}

	if moveAside {
		archive, err := archiveIncompatible(s.cfg.Path)
		if err != nil {
			return err
		}
		s.log.Warn("store version mismatch, archiving database",
			"path", s.cfg.Path, "archive", archive)
	}

	db, err := openDB(s.cfg.Path)
	if err != nil {
		return err
	}

	if createFresh {
		if err := createSchema(ctx, db); err != nil {
			db.Close()
			return err
		}
	}

	s.db = db
	return nil
}

// probeSchema inspects an existing file with a throwaway connection and
// reports whether the schema must be (re)created and whether the file must
// first be moved out of the way.
func probeSchema(ctx context.Context, path string) (createFresh, moveAside bool, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return false, false, fmt.Errorf("probe schema: open: %w", err)
	}
	defer db.Close()

	var tables int
	err = db.QueryRowContext(ctx, `
		SELECT count(name) FROM sqlite_master
		WHERE type = 'table' AND name = 'doc_updates'
	`).Scan(&tables)
	if err != nil {
		return false, false, fmt.Errorf("probe schema: update table: %w", err)
	}
	if tables == 0 {
		return true, false, nil
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return false, false, fmt.Errorf("probe schema: user_version: %w", err)
	}
	if version != currentSchemaVersion {
		return true, true, nil
	}

	// Same version but no checkpoint table: a pre-checkpoint-era file.
	// Recreate additively; the IF NOT EXISTS schema preserves its log rows.
	var checkpoints int
	err = db.QueryRowContext(ctx, `
		SELECT count(name) FROM sqlite_master
		WHERE type = 'table' AND name = 'doc_checkpoints'
	`).Scan(&checkpoints)
	if err != nil {
		return false, false, fmt.Errorf("probe schema: checkpoint table: %w", err)
	}
	if checkpoints == 0 {
		return true, false, nil
	}

	return false, false, nil
}

// archiveIncompatible renames an incompatible database (and any WAL
// sidecars) to a non-colliding name next to the original. The archived rows
// are untouched, just relocated.
func archiveIncompatible(path string) (string, error) {
	// UUIDv7 is time-ordered, so archives sort by when they were retired.
	archive := fmt.Sprintf("%s.incompatible-%s", path, uuid.Must(uuid.NewV7()).String())
	if err := os.Rename(path, archive); err != nil {
		return "", fmt.Errorf("archive database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		sidecar := path + suffix
		if _, err := os.Stat(sidecar); err == nil {
			if err := os.Rename(sidecar, archive+suffix); err != nil {
				return "", fmt.Errorf("archive database sidecar: %w", err)
			}
		}
	}
	return archive, nil
}

// openDB opens the long-lived connection with the pragmas and pool settings
// every store connection needs.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single-connection pool avoids
	// SQLITE_BUSY between our own operations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return db, nil
}

// createSchema reclaims disk space, creates the tables and index, and stamps
// the schema version. Idempotent: a pre-checkpoint-era file keeps its
// doc_updates rows and gains the checkpoint table.
func createSchema(ctx context.Context, db *sql.DB) error {
	// auto_vacuum only takes effect after a VACUUM.
	if _, err := db.ExecContext(ctx, "PRAGMA auto_vacuum = FULL"); err != nil {
		return fmt.Errorf("create schema: auto_vacuum: %w", err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("create schema: vacuum: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("create schema: set user_version: %w", err)
	}
	return nil
}
