package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// ConnectorBuilder creates a DocumentSource for a connection.
// The token authenticates provider calls.
type ConnectorBuilder func(conn domain.Connection, token string) (DocumentSource, error)

// ConnectorFactory creates document sources from connection configuration.
// It maintains a registry of integration keys and their builders.
type ConnectorFactory interface {
	// Create returns a DocumentSource for the given connection.
	// An empty token falls back to the connection's stored access token.
	// Returns ErrUnsupportedType if the integration key is unknown.
	Create(ctx context.Context, conn domain.Connection, token string) (DocumentSource, error)

	// Register adds a connector builder for the given integration key.
	Register(integrationKey string, builder ConnectorBuilder)

	// SupportedTypes returns all registered integration keys.
	SupportedTypes() []string
}
