package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/qstore/internal/crdt"
	"github.com/roach88/qstore/internal/testutil"
)

// newTestStore builds and starts a store on a temp database, stopping it on
// cleanup. A zero cfg.Path gets a fresh temp file.
func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "qstore.db")
	}
	s := New(cfg)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

// testClock starts a manual clock at a fixed instant.
func testClock() *testutil.Clock {
	return testutil.NewClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
}

// stubDoc records the updates applied to it. Its "full state" is the applied
// updates joined with '|', which makes squash and checkpoint contents easy
// to assert on without real CRDT semantics.
type stubDoc struct {
	applied [][]byte
}

func newStubDoc() crdt.Document { return &stubDoc{} }

func (d *stubDoc) ApplyUpdate(update []byte) error {
	d.applied = append(d.applied, append([]byte(nil), update...))
	return nil
}

func (d *stubDoc) Snapshot() ([]byte, error) {
	return bytes.Join(d.applied, []byte("|")), nil
}

// updateRowCount counts log rows for a document, bypassing the public API.
func updateRowCount(t *testing.T, s *Store, path string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM doc_updates WHERE path = ?`, path).Scan(&n))
	return n
}

// checkpointRow fetches a document's checkpoint, reporting whether one exists.
func checkpointRow(t *testing.T, s *Store, path string) (snapshot []byte, ts float64, ok bool) {
	t.Helper()
	err := s.db.QueryRow(
		`SELECT snapshot, timestamp FROM doc_checkpoints WHERE path = ?`, path).
		Scan(&snapshot, &ts)
	if err != nil {
		return nil, 0, false
	}
	return snapshot, ts, true
}
