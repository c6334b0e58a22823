package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure SyncStore implements the interface.
var _ driven.SyncStore = (*SyncStore)(nil)

// SyncStore is an in-memory implementation of driven.SyncStore.
type SyncStore struct {
	mu    sync.RWMutex
	syncs map[string]domain.Sync
}

// NewSyncStore creates a new in-memory sync store.
func NewSyncStore() *SyncStore {
	return &SyncStore{
		syncs: make(map[string]domain.Sync),
	}
}

// Create stores a new sync. A connection holds at most one in-progress sync.
func (s *SyncStore) Create(_ context.Context, sync *domain.Sync) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.syncs[sync.ID]; ok {
		return domain.ErrAlreadyExists
	}
	for _, existing := range s.syncs {
		if existing.ConnectionID == sync.ConnectionID && existing.Status == domain.SyncInProgress {
			return domain.ErrSyncInProgress
		}
	}
	s.syncs[sync.ID] = clone(*sync)
	return nil
}

// Get retrieves a sync by ID.
func (s *SyncStore) Get(_ context.Context, id string) (*domain.Sync, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sync, ok := s.syncs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := clone(sync)
	return &out, nil
}

// Update replaces a stored sync.
func (s *SyncStore) Update(_ context.Context, sync *domain.Sync) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.syncs[sync.ID]; !ok {
		return domain.ErrNotFound
	}
	s.syncs[sync.ID] = clone(*sync)
	return nil
}

// Latest returns the newest sync of a connection.
func (s *SyncStore) Latest(ctx context.Context, connectionID string) (*domain.Sync, error) {
	syncs, err := s.ListByConnection(ctx, connectionID, 1)
	if err != nil {
		return nil, err
	}
	if len(syncs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &syncs[0], nil
}

// ListByConnection returns syncs of a connection newest first.
func (s *SyncStore) ListByConnection(_ context.Context, connectionID string, limit int) ([]domain.Sync, error) {
	return s.filter(limit, func(sync domain.Sync) bool {
		return sync.ConnectionID == connectionID
	}), nil
}

// ListByUser returns syncs of a user newest first.
func (s *SyncStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.Sync, error) {
	return s.filter(limit, func(sync domain.Sync) bool {
		return sync.UserID == userID
	}), nil
}

// ListInProgress returns every in-progress sync.
func (s *SyncStore) ListInProgress(_ context.Context) ([]domain.Sync, error) {
	return s.filter(0, func(sync domain.Sync) bool {
		return sync.Status == domain.SyncInProgress
	}), nil
}

// Delete removes one sync.
func (s *SyncStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.syncs, id)
	return nil
}

// DeleteByConnection removes every sync of a connection.
func (s *SyncStore) DeleteByConnection(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sync := range s.syncs {
		if sync.ConnectionID == connectionID {
			delete(s.syncs, id)
		}
	}
	return nil
}

// filter returns matching syncs newest first. A limit <= 0 means no limit.
func (s *SyncStore) filter(limit int, match func(domain.Sync) bool) []domain.Sync {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.Sync{}
	for _, sync := range s.syncs {
		if match(sync) {
			result = append(result, clone(sync))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// clone copies the id slices so callers cannot mutate stored state.
func clone(s domain.Sync) domain.Sync {
	s.DocumentIDs = append([]string(nil), s.DocumentIDs...)
	if s.ActualSyncedDocumentIDs != nil {
		s.ActualSyncedDocumentIDs = append([]string{}, s.ActualSyncedDocumentIDs...)
	}
	return s
}
