package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

type docKey struct {
	connectionID string
	id           string
}

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[docKey]domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[docKey]domain.Document),
	}
}

// UpsertBatch inserts or replaces documents, keeping content and download
// fields of existing rows.
func (s *DocumentStore) UpsertBatch(_ context.Context, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range docs {
		doc := docs[i]
		key := docKey{doc.ConnectionID, doc.ID}
		if existing, ok := s.documents[key]; ok {
			doc.Content = existing.Content
			doc.StorageKey = existing.StorageKey
			doc.DownloadState = existing.DownloadState
			doc.DownloadError = existing.DownloadError
		}
		s.documents[key] = doc
	}
	return nil
}

// Get retrieves a document.
func (s *DocumentStore) Get(_ context.Context, connectionID, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docKey{connectionID, id}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// Exists reports whether a document is tracked.
func (s *DocumentStore) Exists(_ context.Context, connectionID, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.documents[docKey{connectionID, id}]
	return ok, nil
}

// Insert adds a new document.
func (s *DocumentStore) Insert(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey{doc.ConnectionID, doc.ID}
	if _, ok := s.documents[key]; ok {
		return domain.ErrAlreadyExists
	}
	s.documents[key] = *doc
	return nil
}

// UpdateMetadata overwrites provider metadata of an existing document.
func (s *DocumentStore) UpdateMetadata(_ context.Context, connectionID, id string, update domain.MetadataUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey{connectionID, id}
	doc, ok := s.documents[key]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Title = update.Title
	doc.UpdatedAt = update.UpdatedAt
	doc.ResourceURI = update.ResourceURI
	doc.ParentID = update.ParentID
	s.documents[key] = doc
	return nil
}

// SetDownloadState records download progress.
func (s *DocumentStore) SetDownloadState(
	_ context.Context,
	connectionID, id string,
	state domain.DownloadState,
	storageKey, downloadErr *string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey{connectionID, id}
	doc, ok := s.documents[key]
	if !ok {
		return domain.ErrNotFound
	}
	doc.DownloadState = &state
	doc.DownloadError = downloadErr
	if storageKey != nil {
		doc.StorageKey = storageKey
	}
	s.documents[key] = doc
	return nil
}

// ListByConnection returns documents of a connection owned by userID,
// ordered by id.
func (s *DocumentStore) ListByConnection(_ context.Context, connectionID, userID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.Document{}
	for key, doc := range s.documents {
		if key.connectionID == connectionID && (userID == "" || doc.UserID == userID) {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeleteByConnection removes every document of a connection.
func (s *DocumentStore) DeleteByConnection(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.documents {
		if key.connectionID == connectionID {
			delete(s.documents, key)
		}
	}
	return nil
}
