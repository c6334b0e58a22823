package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// DocumentStore persists mirrored documents keyed by (ID, ConnectionID).
type DocumentStore interface {
	// UpsertBatch inserts or replaces documents in a single write.
	// Existing rows keep their content, storage key and download fields.
	UpsertBatch(ctx context.Context, docs []domain.Document) error

	// Get retrieves a document. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, connectionID, id string) (*domain.Document, error)

	// Exists reports whether a document is tracked for the connection.
	Exists(ctx context.Context, connectionID, id string) (bool, error)

	// Insert adds a new document.
	// Returns domain.ErrAlreadyExists if the key is taken.
	Insert(ctx context.Context, doc *domain.Document) error

	// UpdateMetadata overwrites title, updatedAt, resourceURI and parentId.
	// Returns domain.ErrNotFound if absent.
	UpdateMetadata(ctx context.Context, connectionID, id string, update domain.MetadataUpdate) error

	// SetDownloadState records download progress.
	// A non-nil storageKey replaces the stored key.
	SetDownloadState(ctx context.Context, connectionID, id string, state domain.DownloadState, storageKey, downloadErr *string) error

	// ListByConnection returns the documents of a connection owned by userID.
	// An empty userID matches all owners.
	ListByConnection(ctx context.Context, connectionID, userID string) ([]domain.Document, error)

	// DeleteByConnection removes every document of a connection.
	DeleteByConnection(ctx context.Context, connectionID string) error
}
