package driving

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// SyncService starts, runs and tears down document synchronisation.
type SyncService interface {
	// StartSync records a new in-progress sync and enqueues its job.
	StartSync(ctx context.Context, req StartSyncRequest) (*domain.Sync, error)

	// Run executes a queued sync job. Completed steps of a previous
	// attempt are replayed rather than re-executed.
	Run(ctx context.Context, job domain.Job) error

	// HandleFailure runs once a job has exhausted its retries.
	HandleFailure(ctx context.Context, job domain.Job, cause error) error

	// Teardown deletes every sync and document of a connection.
	Teardown(ctx context.Context, connectionID string) error

	// Resume re-enqueues syncs left in progress by a previous process.
	Resume(ctx context.Context) (int, error)

	// Progress returns live progress for a connection, or nil when idle.
	Progress(connectionID string) *SyncProgress
}

// StartSyncRequest carries the inputs of StartSync.
type StartSyncRequest struct {
	ConnectionID string
	UserID       string
	Token        string
	DocumentIDs  []string
	Integration  domain.IntegrationMeta
}

// SyncProgress represents the live state of a running sync.
type SyncProgress struct {
	// ConnectionID identifies the connection.
	ConnectionID string

	// SyncID identifies the sync being run.
	SyncID string

	// Running indicates if sync is currently in progress.
	Running bool

	// DocumentsSynced is the count of documents persisted so far.
	DocumentsSynced int

	// CurrentRoot is the root document being walked.
	CurrentRoot string
}

// SyncHistory reads sync records.
type SyncHistory interface {
	// Latest returns the newest sync of a connection.
	// Returns domain.ErrNotFound if the connection never synced.
	Latest(ctx context.Context, connectionID string) (*domain.Sync, error)

	// History returns syncs of a connection newest first.
	History(ctx context.Context, connectionID string, limit int) ([]domain.Sync, error)

	// Recent returns syncs of a user across connections newest first.
	Recent(ctx context.Context, userID string, limit int) ([]domain.Sync, error)
}
