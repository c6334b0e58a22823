package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/tui"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// pollInterval is how often --wait checks progress.
var pollInterval = 500 * time.Millisecond

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Start and inspect document syncs",
	Long: `Starts document synchronisation for a connection and reports the
status and history of past syncs.`,
}

var syncStartCmd = &cobra.Command{
	Use:   "start [connection-id] [document-id...]",
	Short: "Start a sync of the given root documents",
	Long: `Records a new sync and queues its job. Folders are walked breadth
first and every document found is recorded.

With --wait the job runs in this process and the command returns once the
sync completes or fails. Without it the job is left to the worker of
"sercha-sync serve".`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSyncStart,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status [connection-id]",
	Short: "Show the latest sync of a connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncStatus,
}

var syncHistoryCmd = &cobra.Command{
	Use:   "history [connection-id]",
	Short: "List past syncs of a connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncHistory,
}

var syncRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recent syncs of a user across connections",
	Args:  cobra.NoArgs,
	RunE:  runSyncRecent,
}

var syncTeardownCmd = &cobra.Command{
	Use:   "teardown [connection-id]",
	Short: "Delete all syncs and documents of a connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncTeardown,
}

var syncWatchCmd = &cobra.Command{
	Use:   "watch [connection-id]",
	Short: "Watch the syncs of a connection in a terminal UI",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncWatch,
}

// Flags for sync commands.
var (
	syncUser     string
	syncToken    string
	syncName     string
	syncWait     bool
	syncTUI      bool
	syncLimit    int
	syncTeardown bool
)

func init() {
	syncStartCmd.Flags().StringVarP(&syncUser, "user", "u", "", "user starting the sync")
	syncStartCmd.Flags().StringVar(&syncToken, "token", "", "provider token for this sync (default: the stored token)")
	syncStartCmd.Flags().StringVar(&syncName, "name", "", "integration display name")
	syncStartCmd.Flags().BoolVarP(&syncWait, "wait", "w", false, "run the sync here and wait for it")
	syncStartCmd.Flags().BoolVar(&syncTUI, "tui", false, "with --wait, show progress in a terminal UI")

	syncHistoryCmd.Flags().IntVarP(&syncLimit, "limit", "n", 0, "maximum number of syncs")
	syncRecentCmd.Flags().IntVarP(&syncLimit, "limit", "n", 0, "maximum number of syncs")
	syncRecentCmd.Flags().StringVarP(&syncUser, "user", "u", "", "user id")
	syncTeardownCmd.Flags().BoolVarP(&syncTeardown, "yes", "y", false, "confirm deletion")

	syncCmd.AddCommand(syncStartCmd)
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncHistoryCmd)
	syncCmd.AddCommand(syncRecentCmd)
	syncCmd.AddCommand(syncTeardownCmd)
	syncCmd.AddCommand(syncWatchCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSyncStart(cmd *cobra.Command, args []string) error {
	if syncUser == "" {
		return errors.New("--user is required")
	}
	ctx := cmd.Context()
	svc, err := requireServices(ctx)
	if err != nil {
		return err
	}

	connectionID := args[0]
	sync, err := svc.Syncs.StartSync(ctx, driving.StartSyncRequest{
		ConnectionID: connectionID,
		UserID:       syncUser,
		Token:        syncToken,
		DocumentIDs:  args[1:],
		Integration:  domain.IntegrationMeta{Name: syncName},
	})
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return fmt.Errorf("a sync is already in progress for connection %s", connectionID)
		}
		return fmt.Errorf("failed to start sync: %w", err)
	}
	cmd.Printf("Sync %s started for connection %s\n", sync.ID, connectionID)

	if !syncWait {
		return nil
	}
	if svc.Worker == nil {
		return errors.New("worker not configured")
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- svc.Worker.Start(workerCtx)
	}()
	defer func() {
		cancel()
		if err := svc.Worker.Stop(); err != nil {
			logger.Warn("stop worker: %v", err)
		}
		<-workerErr
	}()

	var final *domain.Sync
	if syncTUI {
		final, err = watchWithTUI(ctx, svc, connectionID, sync.ID)
	} else {
		final, err = waitForSync(ctx, cmd, svc, connectionID, sync.ID)
	}
	if err != nil {
		return err
	}
	if final == nil {
		cmd.Println("Stopped watching; the sync continues in the background.")
		return nil
	}
	return reportFinal(cmd, final)
}

// waitForSync polls until the sync is terminal, printing progress.
func waitForSync(
	ctx context.Context,
	cmd *cobra.Command,
	svc *Services,
	connectionID, syncID string,
) (*domain.Sync, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		sync, err := svc.History.Latest(ctx, connectionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to get sync status: %w", err)
		}
		if sync != nil && sync.ID == syncID {
			if sync.IsTerminal() {
				if lastCount > 0 {
					cmd.Println()
				}
				return sync, nil
			}
			if p := svc.Syncs.Progress(connectionID); p != nil && p.SyncID == syncID && p.DocumentsSynced > lastCount {
				cmd.Printf("\rSyncing... %d documents", p.DocumentsSynced)
				lastCount = p.DocumentsSynced
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func watchWithTUI(ctx context.Context, svc *Services, connectionID, syncID string) (*domain.Sync, error) {
	app, err := tui.NewApp(&tui.Ports{Sync: svc.Syncs, History: svc.History}, tui.Options{
		ConnectionID: connectionID,
		SyncID:       syncID,
		Interval:     pollInterval,
		ExitOnDone:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	if err := app.WithContext(ctx).Run(); err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	if !app.Done() {
		return nil, nil
	}
	return app.Latest(), nil
}

func reportFinal(cmd *cobra.Command, sync *domain.Sync) error {
	if sync.Status == domain.SyncFailed {
		msg := domain.DefaultSyncErrorMessage
		if sync.Error != nil {
			msg = *sync.Error
		}
		return fmt.Errorf("sync failed: %s", msg)
	}
	cmd.Printf("Sync completed: %d documents", len(sync.ActualSyncedDocumentIDs))
	if sync.IsTruncated {
		cmd.Print(" (truncated)")
	}
	cmd.Println()
	return nil
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := requireServices(ctx)
	if err != nil {
		return err
	}

	sync, err := svc.History.Latest(ctx, args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			cmd.Printf("No syncs for connection: %s\n", args[0])
			return nil
		}
		return fmt.Errorf("failed to get sync status: %w", err)
	}

	synced := len(sync.ActualSyncedDocumentIDs)
	if p := svc.Syncs.Progress(args[0]); p != nil && p.SyncID == sync.ID {
		synced = p.DocumentsSynced
	}

	cmd.Printf("Sync: %s\n\n", sync.ID)
	cmd.Printf("  Status:     %s\n", sync.Status)
	cmd.Printf("  Documents:  %d\n", synced)
	cmd.Printf("  Started:    %s\n", sync.StartedAt.Format(time.RFC3339))
	if sync.CompletedAt != nil {
		cmd.Printf("  Finished:   %s\n", sync.CompletedAt.Format(time.RFC3339))
	}
	if sync.IsTruncated {
		cmd.Println("  Truncated:  yes")
	}
	if sync.Error != nil {
		cmd.Printf("  Error:      %s\n", *sync.Error)
	}
	return nil
}

func runSyncHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := requireServices(ctx)
	if err != nil {
		return err
	}

	syncs, err := svc.History.History(ctx, args[0], syncLimit)
	if err != nil {
		return fmt.Errorf("failed to get sync history: %w", err)
	}
	printSyncs(cmd, syncs, false)
	return nil
}

func runSyncRecent(cmd *cobra.Command, _ []string) error {
	if syncUser == "" {
		return errors.New("--user is required")
	}
	ctx := cmd.Context()
	svc, err := requireServices(ctx)
	if err != nil {
		return err
	}

	syncs, err := svc.History.Recent(ctx, syncUser, syncLimit)
	if err != nil {
		return fmt.Errorf("failed to get recent syncs: %w", err)
	}
	printSyncs(cmd, syncs, true)
	return nil
}

func printSyncs(cmd *cobra.Command, syncs []domain.Sync, withConnection bool) {
	if len(syncs) == 0 {
		cmd.Println("No syncs found.")
		return
	}
	for i := range syncs {
		s := &syncs[i]
		line := fmt.Sprintf("  %s  %-11s  %4d docs  %s",
			s.StartedAt.Format("2006-01-02 15:04:05"), s.Status, len(s.ActualSyncedDocumentIDs), s.ID)
		if withConnection {
			line += fmt.Sprintf("  [%s %s]", s.IntegrationName, s.ConnectionID)
		}
		cmd.Println(strings.TrimRight(line, " "))
	}
	cmd.Printf("\nTotal: %d syncs\n", len(syncs))
}

func runSyncTeardown(cmd *cobra.Command, args []string) error {
	if !syncTeardown {
		return errors.New("teardown deletes every sync and document of the connection; pass --yes to confirm")
	}
	ctx := cmd.Context()
	svc, err := requireServices(ctx)
	if err != nil {
		return err
	}

	if err := svc.Syncs.Teardown(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete sync data: %w", err)
	}
	cmd.Printf("Deleted sync data for connection: %s\n", args[0])
	return nil
}

func runSyncWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := requireServices(ctx)
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Sync: svc.Syncs, History: svc.History}, tui.Options{ConnectionID: args[0]})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if err := app.WithContext(ctx).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
