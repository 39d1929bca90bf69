package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/qstore/internal/codec"
	"github.com/roach88/qstore/internal/crdt"
	"github.com/roach88/qstore/internal/store"
)

// seedDatabase creates a database and appends updates to one document using
// the same codec the CLI defaults to (brotli), so inspect reads get the
// decompressed sizes.
func seedDatabase(t *testing.T, doc string, updates ...[]byte) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	ctx := context.Background()
	s := store.New(store.Config{Path: dbPath, Codec: codec.NewBrotli()})
	require.NoError(t, s.Start(ctx))
	for _, u := range updates {
		require.NoError(t, s.Append(ctx, doc, u))
	}
	require.NoError(t, s.Stop())
	return dbPath
}

// crdtUpdates produces n incremental updates from a real document, one per
// key set. Compaction replays updates, so commands that compact need
// payloads the engine accepts.
func crdtUpdates(t *testing.T, n int) [][]byte {
	t.Helper()
	doc := crdt.NewAutomerge()
	updates := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		require.NoError(t, doc.Doc().Path("key").Set(i))
		u := doc.Doc().SaveIncremental()
		require.NotEmpty(t, u)
		updates = append(updates, u)
	}
	return updates
}
