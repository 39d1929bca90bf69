package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectMissingDocFlag(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewInspectCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", "test.db"}) // Missing --doc flag

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestInspectNonExistentDatabase(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewInspectCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", "/nonexistent/path/test.db", "--doc", "notes/todo.md"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInspectMissingDocument(t *testing.T) {
	dbPath := seedDatabase(t, "notes/other.md", []byte("u1"))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewInspectCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--doc", "notes/todo.md"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestInspectText(t *testing.T) {
	dbPath := seedDatabase(t, "notes/todo.md", []byte("first"), []byte("second update"))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewInspectCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--doc", "notes/todo.md"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "document: notes/todo.md")
	assert.Contains(t, output, "updates:  2")
	assert.Contains(t, output, "bytes:    18")
}

func TestInspectJSON(t *testing.T) {
	dbPath := seedDatabase(t, "notes/todo.md", []byte("first"), []byte("second update"))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewInspectCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--doc", "notes/todo.md"})

	err := cmd.Execute()
	require.NoError(t, err)

	var res InspectResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, "notes/todo.md", res.Doc)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.Rows[0].Seq)
	assert.Equal(t, 5, res.Rows[0].Size)
	assert.Equal(t, 13, res.Rows[1].Size)
	assert.Equal(t, 2, res.Stats.Updates)
	assert.Equal(t, 18, res.Stats.TotalBytes)
	assert.LessOrEqual(t, res.Stats.FirstTimestamp, res.Stats.LastTimestamp)
}

func TestInspectHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewInspectCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "update history")
	assert.Contains(t, output, "--db")
	assert.Contains(t, output, "--doc")
}

func TestRenderInspectTextGolden(t *testing.T) {
	res := InspectResult{
		Doc: "notes/todo.md",
		Rows: []InspectRow{
			{Seq: 1, Timestamp: 1717243200.0, Size: 42},
			{Seq: 2, Timestamp: 1717243201.5, Size: 7},
		},
		Stats: InspectStats{
			Updates:        2,
			TotalBytes:     49,
			FirstTimestamp: 1717243200.0,
			LastTimestamp:  1717243201.5,
		},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, renderInspectText(buf, res))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "inspect_text", buf.Bytes())
}
