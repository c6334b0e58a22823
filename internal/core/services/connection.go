package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Ensure ConnectionService implements the interface.
var _ driving.ConnectionService = (*ConnectionService)(nil)

// ConnectionService manages registered connections.
type ConnectionService struct {
	store   driven.ConnectionStore
	factory driven.ConnectorFactory
	now     func() time.Time
}

// NewConnectionService creates a new connection service.
func NewConnectionService(store driven.ConnectionStore, factory driven.ConnectorFactory) *ConnectionService {
	return &ConnectionService{store: store, factory: factory, now: time.Now}
}

// Register creates a new connection. An empty ID is generated.
func (s *ConnectionService) Register(ctx context.Context, req driving.RegisterConnectionRequest) (*domain.Connection, error) {
	if req.UserID == "" || req.IntegrationKey == "" {
		return nil, fmt.Errorf("%w: user and integration are required", domain.ErrInvalidInput)
	}
	if s.factory != nil && !slices.Contains(s.factory.SupportedTypes(), req.IntegrationKey) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, req.IntegrationKey)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	} else if existing, err := s.store.Get(ctx, id); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	name := req.IntegrationName
	if name == "" {
		name = req.IntegrationKey
	}

	now := s.now()
	conn := &domain.Connection{
		ID:              id,
		UserID:          req.UserID,
		IntegrationKey:  req.IntegrationKey,
		IntegrationName: name,
		IntegrationLogo: req.IntegrationLogo,
		AccessToken:     req.AccessToken,
		BaseURL:         req.BaseURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Save(ctx, conn); err != nil {
		return nil, fmt.Errorf("save connection: %w", err)
	}
	return conn, nil
}

// Get retrieves a connection by ID.
func (s *ConnectionService) Get(ctx context.Context, id string) (*domain.Connection, error) {
	return s.store.Get(ctx, id)
}

// List returns the connections of a user.
func (s *ConnectionService) List(ctx context.Context, userID string) ([]domain.Connection, error) {
	return s.store.ListByUser(ctx, userID)
}

// Disconnect removes a connection. Sync data is kept until teardown.
func (s *ConnectionService) Disconnect(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
