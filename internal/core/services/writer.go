package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// DocumentWriter persists discovered documents in bulk.
type DocumentWriter struct {
	store driven.DocumentStore
	now   func() time.Time
}

// NewDocumentWriter creates a writer over store.
func NewDocumentWriter(store driven.DocumentStore) *DocumentWriter {
	return &DocumentWriter{store: store, now: time.Now}
}

// UpsertBatch stamps records with their connection and owner and writes
// them keyed by (id, connectionId). Writing the same batch twice leaves the
// store as if it had been written once.
func (w *DocumentWriter) UpsertBatch(ctx context.Context, records []domain.DocumentRecord, connectionID, userID string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	syncedAt := w.now().UTC().Format(time.RFC3339)
	docs := make([]domain.Document, 0, len(records))
	for _, rec := range records {
		doc := rec.ToDocument(connectionID, userID)
		doc.LastSyncedAt = &syncedAt
		docs = append(docs, doc)
	}

	if err := w.store.UpsertBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("upsert %d documents: %w", len(docs), err)
	}
	return len(docs), nil
}
