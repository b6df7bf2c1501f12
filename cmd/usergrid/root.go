package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kittclouds/usergrid/internal/config"
	"github.com/kittclouds/usergrid/internal/store"
	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/logging"
	"github.com/kittclouds/usergrid/pkg/records"
	"github.com/kittclouds/usergrid/pkg/userapi"
)

var (
	// Persistent flags available to all subcommands
	configPath string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger *slog.Logger
)

// demoUsers seed an empty store.
var demoUsers = []records.Record{
	{ID: 0, Name: "api-name1", Username: "api-username1", Email: "api-email1@test.com"},
	{ID: 1, Name: "api-name2", Username: "api-username2", Email: "api-email2@test.com"},
}

var rootCmd = &cobra.Command{
	Use:   "usergrid",
	Short: "usergrid edits user records with optimistic drafts",
	Long: `usergrid loads user records from a backend, keeps edits as drafts and
saves them one row at a time or all at once.

Without backend.url the commands work against the local SQL store
configured by backend.driver and backend.dsn.`,
	Version:       Version + " (" + Commit + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger = logging.New(cfg.LoggerConfig())
		if jsonOutput {
			color.NoColor = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "usergrid.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}

// openStore opens the configured SQL store and seeds it when empty.
func openStore(ctx context.Context) (*store.SQLStore, error) {
	s, err := store.NewSQLStoreWithDSN(cfg.Backend.Driver, cfg.Backend.DSN)
	if err != nil {
		return nil, err
	}
	if _, err := s.Seed(ctx, demoUsers); err != nil {
		s.Close()
		return nil, fmt.Errorf("seed store: %w", err)
	}
	s.SetBulkEnabled(cfg.Backend.BulkEndpoint)
	return s, nil
}

// openService returns the HTTP client when backend.url is set, otherwise
// the local store. The returned func releases it.
func openService(ctx context.Context) (coordinator.RecordService, func(), error) {
	if cfg.Remote() {
		c := userapi.NewClient(cfg.Backend.URL, userapi.WithTimeout(cfg.Backend.Timeout))
		logger.Debug("using remote backend", "url", c.BaseURL())
		return c, func() {}, nil
	}
	s, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("using local store", "driver", cfg.Backend.Driver)
	return s, func() { s.Close() }, nil
}

// localStore is openStore for commands that need store-only operations.
func localStore(ctx context.Context, command string) (*store.SQLStore, error) {
	if cfg.Remote() {
		return nil, fmt.Errorf("%s works on the local store; unset backend.url", command)
	}
	return openStore(ctx)
}
