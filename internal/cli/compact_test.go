package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactMissingDocFlag(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompactCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", "test.db"}) // Missing --doc flag

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestCompactNonExistentDatabase(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompactCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", "/nonexistent/path/test.db", "--doc", "notes/todo.md"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestCompactMissingDocument(t *testing.T) {
	dbPath := seedDatabase(t, "notes/other.md", []byte("u1"))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompactCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--doc", "notes/todo.md"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCompactCheckpointKeepsRows(t *testing.T) {
	dbPath := seedDatabase(t, "notes/todo.md", crdtUpdates(t, 3)...)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompactCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--doc", "notes/todo.md"})

	err := cmd.Execute()
	require.NoError(t, err)

	var res CompactResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, "checkpoint", res.Mode)
	assert.Equal(t, 3, res.RowsBefore)
	assert.Equal(t, 3, res.RowsAfter)
}

func TestCompactSquashCollapsesRows(t *testing.T) {
	dbPath := seedDatabase(t, "notes/todo.md", crdtUpdates(t, 3)...)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompactCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--doc", "notes/todo.md", "--squash"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "squash notes/todo.md: 3 rows -> 1 rows")
}
