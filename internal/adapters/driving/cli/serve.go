package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/api"
	"github.com/custodia-labs/sercha-sync/internal/config"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the job worker",
	Long: `Starts the HTTP API and the background worker that runs sync and
download jobs. Syncs left in progress by a previous run are queued again.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := requireServices(ctx)
	if err != nil {
		return err
	}
	if svc.Worker == nil {
		return errors.New("worker not configured")
	}

	auth, err := api.NewAuthenticator(cfg.Auth.Secret)
	if err != nil {
		return fmt.Errorf("auth.secret is required to serve (set %s): %w", config.EnvName("auth.secret"), err)
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv, err := api.NewServer(api.Services{
		Syncs:       svc.Syncs,
		History:     svc.History,
		Documents:   svc.Documents,
		Webhooks:    svc.Webhooks,
		Connections: svc.Connections,
	}, auth, api.Options{Addr: addr, CORSOrigins: cfg.Server.CORSOrigins})
	if err != nil {
		return err
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- svc.Worker.Start(workerCtx)
	}()

	if n, err := svc.Syncs.Resume(ctx); err != nil {
		logger.Warn("resume interrupted syncs: %v", err)
	} else if n > 0 {
		cmd.Printf("Resumed %d interrupted syncs\n", n)
	}

	serveErr := srv.Run(ctx)

	cancelWorker()
	if err := svc.Worker.Stop(); err != nil {
		logger.Warn("stop worker: %v", err)
	}
	if err := <-workerErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("worker stopped: %v", err)
	}
	return serveErr
}
