package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/qstore/internal/codec"
	"github.com/roach88/qstore/internal/crdt"
)

// DefaultCheckpointInterval is the number of appended updates between
// checkpoint refreshes when Config.CheckpointInterval is zero.
const DefaultCheckpointInterval = 100

// MetadataFunc returns arbitrary bytes to stamp on an update row. It is
// called once per inserted row, inside the write transaction.
type MetadataFunc func(ctx context.Context) ([]byte, error)

// Config carries everything a Store needs. The zero value of each optional
// field selects a sensible default.
type Config struct {
	// Path is the SQLite database file. Required.
	Path string

	// DocumentTTL is how long a document may sit idle before its next
	// append squashes the accumulated history into a single row.
	// Zero disables squashing.
	DocumentTTL time.Duration

	// CheckpointInterval is the number of appends between checkpoint
	// refreshes. Zero means DefaultCheckpointInterval.
	CheckpointInterval int

	// Codec compresses stored payloads. Nil means no compression.
	// Must be fixed before Start; it is not swappable afterwards.
	Codec codec.Codec

	// NewDocument builds the in-memory replicas that squash and checkpoint
	// replays run against. Nil means the automerge-backed default.
	NewDocument crdt.Factory

	// Metadata, when set, stamps each inserted update row.
	Metadata MetadataFunc

	// Logger for diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// Now is the wall clock, injectable for tests. Nil means time.Now.
	Now func() time.Time
}

// Store is the file-level handle. One Store owns one SQLite file holding the
// update log and checkpoints for any number of documents.
//
// Lifecycle: New -> Start -> operations -> Stop. Operations invoked before
// Start fail with ErrNotStarted; operations racing a slow Start wait on the
// readiness barrier and proceed once it fires.
//
// All operations are safe for concurrent use; they serialize through a
// single file-scoped lock.
type Store struct {
	cfg    Config
	log    *slog.Logger
	codec  codec.Codec
	newDoc crdt.Factory
	now    func() time.Time

	started atomic.Bool
	ready   chan struct{} // closed when startup finished, initErr set first
	initErr error

	sem chan struct{} // capacity 1; the file-scoped lock

	db *sql.DB

	// counters tracks appends since the last checkpoint, per document.
	// Process-local by design: a restart resets the countdown, so checkpoint
	// cadence is best-effort across restarts. Guarded by sem.
	counters map[string]int
}

// New creates a Store. No I/O happens until Start.
func New(cfg Config) *Store {
	s := &Store{
		cfg:      cfg,
		log:      cfg.Logger,
		codec:    cfg.Codec,
		newDoc:   cfg.NewDocument,
		now:      cfg.Now,
		ready:    make(chan struct{}),
		sem:      make(chan struct{}, 1),
		counters: make(map[string]int),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.codec == nil {
		s.codec = codec.Identity{}
	}
	if s.newDoc == nil {
		s.newDoc = crdt.NewDocument
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Start runs the schema lifecycle (probe, migrate-aside or create-fresh) and
// fires the readiness barrier. Any schema or I/O error is fatal to startup
// and returned. Start must be called exactly once.
func (s *Store) Start(ctx context.Context) error {
	if s.started.Swap(true) {
		return errors.New("qstore: store already started")
	}

	err := s.initDB(ctx)
	s.initErr = err
	close(s.ready)

	if err != nil {
		return fmt.Errorf("start store: %w", err)
	}
	return nil
}

// Stop closes the database connection if startup had completed. It is safe
// to call before Start (a no-op) and after a failed Start.
func (s *Store) Stop() error {
	if !s.started.Load() {
		return nil
	}
	<-s.ready
	if s.initErr != nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// acquire waits for readiness, then takes the file lock. The returned
// release function must be called on every exit path. A caller abandoning
// the wait via ctx leaves no state behind; once acquired, operations run to
// completion without mid-transaction cancellation.
func (s *Store) acquire(ctx context.Context) (release func(), err error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}

	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.initErr != nil {
		return nil, fmt.Errorf("store failed to start: %w", s.initErr)
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func() { <-s.sem }, nil
}

// timestamp returns the current wall clock as fractional seconds, the unit
// stored in the timestamp columns.
func (s *Store) timestamp() float64 {
	return float64(s.now().UnixNano()) / float64(time.Second)
}

// metadata invokes the metadata callback, or returns nil bytes without one.
func (s *Store) metadata(ctx context.Context) ([]byte, error) {
	if s.cfg.Metadata == nil {
		return nil, nil
	}
	return s.cfg.Metadata(ctx)
}

func (s *Store) checkpointInterval() int {
	if s.cfg.CheckpointInterval > 0 {
		return s.cfg.CheckpointInterval
	}
	return DefaultCheckpointInterval
}
