package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/qstore/internal/store"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	StoreOptions
	Doc      string
	From     string // update source file; "-" means stdin
	TTL      string
	Interval int
}

// AppendResult is the append command output.
type AppendResult struct {
	Doc   string `json:"doc"`
	Bytes int    `json:"bytes"`
	Rows  int    `json:"rows"`
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append one update to a document",
		Long: `Append a single binary update to a document's log, creating the
database if needed. The update bytes come from --from, or stdin when
--from is "-" or omitted. TTL squashing and checkpoint cadence apply
exactly as they do for embedded writers.

Examples:
  qstore append --db notes.db --doc notes/todo.md --from update.bin
  producer | qstore append --db notes.db --doc notes/todo.md --ttl 24h`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions)
	cmd.Flags().StringVar(&opts.Doc, "doc", "", "document path (required)")
	_ = cmd.MarkFlagRequired("doc")
	cmd.Flags().StringVar(&opts.From, "from", "-", "file holding the update bytes (- for stdin)")
	cmd.Flags().StringVar(&opts.TTL, "ttl", "", "document TTL, e.g. 24h (overrides config)")
	cmd.Flags().IntVar(&opts.Interval, "interval", 0, "checkpoint interval (overrides config)")

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	update, err := readUpdate(opts.From, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "read update", err)
	}

	var ttl time.Duration
	if opts.TTL != "" {
		ttl, err = time.ParseDuration(opts.TTL)
		if err != nil {
			return WrapExitError(ExitCommandError, "parse --ttl", err)
		}
	}

	s, err := openStore(ctx, &opts.StoreOptions, false, func(cfg *store.Config) {
		if opts.TTL != "" {
			cfg.DocumentTTL = ttl
		}
		if opts.Interval > 0 {
			cfg.CheckpointInterval = opts.Interval
		}
	})
	if err != nil {
		return err
	}
	defer s.Stop()

	if err := s.Append(ctx, opts.Doc, update); err != nil {
		return WrapExitError(ExitCommandError, "append update", err)
	}

	entries, err := s.History(ctx, opts.Doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "read history", err)
	}

	res := AppendResult{Doc: opts.Doc, Bytes: len(update), Rows: len(entries)}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Emit(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "appended %d bytes to %s (%d rows)\n", res.Bytes, res.Doc, res.Rows)
		return err
	})
}

func readUpdate(from string, stdin io.Reader) ([]byte, error) {
	if from == "" || from == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(from)
}
