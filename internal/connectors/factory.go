package connectors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/connectors/box"
	"github.com/custodia-labs/sercha-sync/internal/connectors/sharepoint"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Factory creates document sources keyed by integration.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]driven.ConnectorBuilder
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{builders: make(map[string]driven.ConnectorBuilder)}
}

// NewDefaultFactory creates a factory with the built-in integrations.
func NewDefaultFactory() *Factory {
	f := NewFactory()
	f.Register(domain.IntegrationBox, box.NewFromConnection)
	f.Register(domain.IntegrationSharePoint, sharepoint.NewFromConnection)
	return f
}

// Register adds or replaces the builder for an integration key.
func (f *Factory) Register(integrationKey string, builder driven.ConnectorBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[integrationKey] = builder
}

// Create builds a document source for conn. An empty token falls back to
// the connection's stored access token.
func (f *Factory) Create(ctx context.Context, conn domain.Connection, token string) (driven.DocumentSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	builder, ok := f.builders[conn.IntegrationKey]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, conn.IntegrationKey)
	}

	if token == "" {
		token = conn.AccessToken
	}
	src, err := builder(conn, token)
	if err != nil {
		return nil, fmt.Errorf("create %s connector: %w", conn.IntegrationKey, err)
	}
	return src, nil
}

// SupportedTypes returns the registered integration keys in sorted order.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.builders))
	for k := range f.builders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
