// Package cli implements the readlog-sync command set: the device-side
// sync operations (hydrate, upload, merge) and offline stats over the
// local store.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"readlog/internal/config"
	"readlog/internal/localstore"
	"readlog/internal/logger"
	"readlog/internal/remote"
	syncengine "readlog/internal/sync"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the sync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "readlog-sync",
		Short: "Sync the local readlog store with the server",
		Long: `readlog-sync keeps the on-device reading log in step with the server.

Configuration comes from the environment (or a .env file):
  READLOG_SERVER_URL  server base URL
  READLOG_TOKEN       API token
  READLOG_DB_PATH     local database path (default ~/.readlog)
  READLOG_TIMEZONE    timezone anchoring "today" (default UTC)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewHydrateCommand(opts))
	cmd.AddCommand(NewUploadCommand(opts))
	cmd.AddCommand(NewMergeCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

type env struct {
	cfg    config.ClientConfig
	log    zerolog.Logger
	local  *localstore.Store
	engine *syncengine.Engine
}

func (e *env) close() {
	if e.local != nil {
		_ = e.local.Close()
	}
}

func openEnv(opts *RootOptions) (*env, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.New(level, true)

	local, err := localstore.Open(cfg.DBPath, log)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(nil, cfg.ServerURL, cfg.Token)
	return &env{
		cfg:    cfg,
		log:    log,
		local:  local,
		engine: syncengine.NewEngine(local, client, log),
	}, nil
}

// signalContext returns a context canceled by SIGINT/SIGTERM so every sync
// operation can stop cleanly between items.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
