// Package cli provides the sercha-sync command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-sync/internal/config"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Services holds the driving ports the commands call.
type Services struct {
	Syncs       driving.SyncService
	History     driving.SyncHistory
	Connections driving.ConnectionService
	Documents   driving.DocumentService
	Webhooks    driving.WebhookService
	Worker      driving.Worker
}

// Builder wires Services from a resolved configuration. The returned
// function releases what was opened.
type Builder func(ctx context.Context, cfg config.Config) (*Services, func() error, error)

var (
	configPath string
	envFile    string
	verbose    bool

	cfg       config.Config
	settings  driven.ConfigStore
	builder   Builder
	installed *Services
	closers   []func() error
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "sercha-sync",
	Short: "Synchronise document trees from remote providers",
	Long: `sercha-sync walks folder trees of connected providers (Box, SharePoint),
records their documents and keeps them current through webhooks.

Run "sercha-sync serve" to start the HTTP API and the background worker.`,
	SilenceUsage:       true,
	PersistentPreRunE:  loadConfig,
	PersistentPostRunE: release,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config.toml (default ~/.sercha-sync/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with SERCHA_SYNC_* overrides")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetBuilder registers how services are wired from configuration.
func SetBuilder(b Builder) {
	builder = b
}

// SetServices installs prebuilt services. The builder is not used.
func SetServices(s *Services) {
	installed = s
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		p, err := file.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving config path: %w", err)
		}
		path = p
	}

	store, err := file.Open(path)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settings = store

	loaded, err := config.Load(filepath.Dir(path), store, envFile)
	if err != nil {
		return err
	}
	cfg = loaded

	logger.SetVerbose(verbose || cfg.Log.Verbose)
	if cfg.Log.File != "" && logCloser == nil {
		logCloser = logger.SetFile(logger.FileOptions{Path: cfg.Log.File, MaxSizeMB: cfg.Log.MaxSizeMB})
	}
	logger.Debug("config loaded from %s", store.Path())
	return nil
}

// requireServices builds services on first use.
func requireServices(ctx context.Context) (*Services, error) {
	if installed != nil {
		return installed, nil
	}
	if builder == nil {
		return nil, errors.New("services not configured")
	}
	s, closeFn, err := builder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("starting services: %w", err)
	}
	installed = s
	if closeFn != nil {
		closers = append(closers, closeFn)
	}
	return installed, nil
}

func release(_ *cobra.Command, _ []string) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	closers = nil
	if logCloser != nil {
		errs = append(errs, logCloser.Close())
		logCloser = nil
		logger.SetOutput(os.Stderr)
	}
	return errors.Join(errs...)
}
