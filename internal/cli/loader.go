package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/qstore/internal/codec"
	"github.com/roach88/qstore/internal/store"
)

// StoreOptions are the flags shared by every command that opens a database.
type StoreOptions struct {
	Database   string
	ConfigFile string
	Codec      string
}

func addStoreFlags(cmd *cobra.Command, opts *StoreOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the qstore database")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "YAML config file providing flag defaults")
	cmd.Flags().StringVar(&opts.Codec, "codec", "brotli", "payload codec (identity|brotli|zstd)")
}

// openStore resolves flags and config file into a store.Config, then starts
// the store. The caller must Stop it. mustExist rejects a missing database
// file instead of creating one (inspect/compact should not conjure empty
// stores). adjust, when non-nil, tweaks the config after defaults are
// applied.
func openStore(ctx context.Context, opts *StoreOptions, mustExist bool, adjust func(*store.Config)) (*store.Store, error) {
	var cfg store.Config

	if opts.ConfigFile != "" {
		fc, err := LoadFileConfig(opts.ConfigFile)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load config", err)
		}
		ttl, err := fc.TTL()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load config", err)
		}
		cfg.Path = fc.DB
		cfg.DocumentTTL = ttl
		cfg.CheckpointInterval = fc.CheckpointInterval
	}

	if opts.Database != "" {
		cfg.Path = opts.Database
	}
	if cfg.Path == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set db in --config")
	}
	if mustExist {
		if _, err := os.Stat(cfg.Path); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
	}

	c, err := newCodec(opts.Codec)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "select codec", err)
	}
	cfg.Codec = c

	if adjust != nil {
		adjust(&cfg)
	}

	s := store.New(cfg)
	if err := s.Start(ctx); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return s, nil
}

func newCodec(name string) (codec.Codec, error) {
	switch name {
	case "", "identity":
		return codec.Identity{}, nil
	case "brotli":
		return codec.NewBrotli(), nil
	case "zstd":
		return codec.NewZstd()
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
