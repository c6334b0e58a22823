package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// SyncStore persists sync records.
type SyncStore interface {
	// Create stores a new in-progress sync.
	// Returns domain.ErrSyncInProgress if the connection already has one.
	Create(ctx context.Context, s *domain.Sync) error

	// Get retrieves a sync by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Sync, error)

	// Update replaces a stored sync. Returns domain.ErrNotFound if absent.
	Update(ctx context.Context, s *domain.Sync) error

	// Latest returns the sync with the newest start time for a connection.
	Latest(ctx context.Context, connectionID string) (*domain.Sync, error)

	// ListByConnection returns syncs newest first, at most limit.
	ListByConnection(ctx context.Context, connectionID string, limit int) ([]domain.Sync, error)

	// ListByUser returns syncs across connections newest first, at most limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Sync, error)

	// ListInProgress returns every sync that has not reached a terminal state.
	ListInProgress(ctx context.Context) ([]domain.Sync, error)

	// Delete removes one sync.
	Delete(ctx context.Context, id string) error

	// DeleteByConnection removes every sync of a connection.
	DeleteByConnection(ctx context.Context, connectionID string) error
}
