package driving

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// ConnectionService manages registered connections.
type ConnectionService interface {
	// Register stores a new connection and returns it.
	Register(ctx context.Context, req RegisterConnectionRequest) (*domain.Connection, error)

	// Get returns a connection. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Connection, error)

	// List returns the connections of a user.
	List(ctx context.Context, userID string) ([]domain.Connection, error)

	// Disconnect archives a connection. Running syncs fail on their next check.
	Disconnect(ctx context.Context, id string) error
}

// RegisterConnectionRequest carries the inputs of Register.
type RegisterConnectionRequest struct {
	ID              string
	UserID          string
	IntegrationKey  string
	IntegrationName string
	IntegrationLogo string
	AccessToken     string
	BaseURL         string
}
