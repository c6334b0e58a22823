package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService reads mirrored documents and their downloaded content.
type DocumentService struct {
	docs  driven.DocumentStore
	blobs driven.BlobStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(docs driven.DocumentStore, blobs driven.BlobStore) *DocumentService {
	return &DocumentService{docs: docs, blobs: blobs}
}

// List returns the documents of a connection owned by userID.
func (s *DocumentService) List(ctx context.Context, userID, connectionID string) ([]domain.Document, error) {
	return s.docs.ListByConnection(ctx, connectionID, userID)
}

// Content returns extracted text, or "" when the document or its text is missing.
func (s *DocumentService) Content(ctx context.Context, connectionID, id string) (string, error) {
	doc, err := s.docs.Get(ctx, connectionID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if doc.Content == nil {
		return "", nil
	}
	return *doc.Content, nil
}

// Open streams the downloaded content of a document. The storage key
// must match the one recorded on the document.
func (s *DocumentService) Open(ctx context.Context, connectionID, id, storageKey string) (*driving.DocumentStream, error) {
	if storageKey == "" {
		return nil, fmt.Errorf("%w: storage key is required", domain.ErrInvalidInput)
	}

	doc, err := s.docs.Get(ctx, connectionID, id)
	if err != nil {
		return nil, err
	}
	if doc.StorageKey == nil || *doc.StorageKey != storageKey {
		return nil, fmt.Errorf("no content for document %s: %w", id, domain.ErrNotFound)
	}

	body, info, err := s.blobs.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("open content: %w", err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &driving.DocumentStream{
		Body:        body,
		ContentType: contentType,
		Size:        info.Size,
		Filename:    doc.Title,
	}, nil
}
