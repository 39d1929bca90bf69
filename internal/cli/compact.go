package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/qstore/internal/store"
)

// CompactOptions holds flags for the compact command.
type CompactOptions struct {
	*RootOptions
	StoreOptions
	Doc    string
	Squash bool
}

// CompactResult is the compact command output.
type CompactResult struct {
	Doc        string `json:"doc"`
	Mode       string `json:"mode"` // "checkpoint" or "squash"
	RowsBefore int    `json:"rows_before"`
	RowsAfter  int    `json:"rows_after"`
}

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact a document's history",
		Long: `Run compaction for one document on demand.

The default mode refreshes the checkpoint: the raw log is kept and future
reconstructions start from the new snapshot. --squash instead collapses the
entire update history into a single full-state row.

Examples:
  qstore compact --db notes.db --doc notes/todo.md
  qstore compact --db notes.db --doc notes/todo.md --squash`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(opts, cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions)
	cmd.Flags().StringVar(&opts.Doc, "doc", "", "document path (required)")
	_ = cmd.MarkFlagRequired("doc")
	cmd.Flags().BoolVar(&opts.Squash, "squash", false, "collapse the full history into one row")

	return cmd
}

func runCompact(opts *CompactOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	s, err := openStore(ctx, &opts.StoreOptions, true, nil)
	if err != nil {
		return err
	}
	defer s.Stop()

	before, err := s.History(ctx, opts.Doc)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitFailure, fmt.Sprintf("document %q not found", opts.Doc))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "read history", err)
	}

	mode := "checkpoint"
	if opts.Squash {
		mode = "squash"
		err = s.Squash(ctx, opts.Doc)
	} else {
		err = s.Checkpoint(ctx, opts.Doc)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, mode, err)
	}

	after, err := s.History(ctx, opts.Doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "read history", err)
	}

	res := CompactResult{
		Doc:        opts.Doc,
		Mode:       mode,
		RowsBefore: len(before),
		RowsAfter:  len(after),
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Emit(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s %s: %d rows -> %d rows\n", res.Mode, res.Doc, res.RowsBefore, res.RowsAfter)
		return err
	})
}
