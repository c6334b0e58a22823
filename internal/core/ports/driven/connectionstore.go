package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// ConnectionStore persists registered connections.
type ConnectionStore interface {
	// Save creates or updates a connection.
	Save(ctx context.Context, conn *domain.Connection) error

	// Get retrieves a connection. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Connection, error)

	// Delete removes a connection.
	Delete(ctx context.Context, id string) error

	// ListByUser returns connections owned by userID.
	ListByUser(ctx context.Context, userID string) ([]domain.Connection, error)
}
