package services

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.SyncHistory = (*HistoryService)(nil)

// History limits.
const (
	MaxHistoryLimit = 50
	MaxRecentLimit  = 10
)

// HistoryService reads sync records for status and history views.
type HistoryService struct {
	syncs driven.SyncStore
}

// NewHistoryService creates a history service.
func NewHistoryService(syncs driven.SyncStore) *HistoryService {
	return &HistoryService{syncs: syncs}
}

// Latest returns the newest sync of a connection.
func (s *HistoryService) Latest(ctx context.Context, connectionID string) (*domain.Sync, error) {
	return s.syncs.Latest(ctx, connectionID)
}

// History returns at most limit syncs of a connection, newest first.
// Non-positive or oversized limits fall back to 50.
func (s *HistoryService) History(ctx context.Context, connectionID string, limit int) ([]domain.Sync, error) {
	return s.syncs.ListByConnection(ctx, connectionID, clampLimit(limit, MaxHistoryLimit))
}

// Recent returns at most limit syncs across the user's connections, newest first.
// Non-positive or oversized limits fall back to 10.
func (s *HistoryService) Recent(ctx context.Context, userID string, limit int) ([]domain.Sync, error) {
	return s.syncs.ListByUser(ctx, userID, clampLimit(limit, MaxRecentLimit))
}

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}
