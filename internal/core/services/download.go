package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Ensure DownloadService implements the interface.
var _ driving.DownloadTrigger = (*DownloadService)(nil)

// DownloadService fetches leaf document content into blob storage.
type DownloadService struct {
	connections driven.ConnectionStore
	docs        driven.DocumentStore
	factory     driven.ConnectorFactory
	blobs       driven.BlobStore
	queue       driven.JobQueue
}

// NewDownloadService creates a download service.
func NewDownloadService(
	connections driven.ConnectionStore,
	docs driven.DocumentStore,
	factory driven.ConnectorFactory,
	blobs driven.BlobStore,
	queue driven.JobQueue,
) *DownloadService {
	return &DownloadService{
		connections: connections,
		docs:        docs,
		factory:     factory,
		blobs:       blobs,
		queue:       queue,
	}
}

// TriggerDownload enqueues a download job and returns immediately.
func (s *DownloadService) TriggerDownload(ctx context.Context, token, connectionID, documentID string) error {
	if connectionID == "" || documentID == "" {
		return domain.NonRetriablef("%w: connection and document id are required", domain.ErrInvalidInput)
	}

	pending := domain.DownloadPending
	if err := s.docs.SetDownloadState(ctx, connectionID, documentID, pending, nil, nil); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("download: mark %s pending: %v", documentID, err)
	}

	job := domain.Job{
		Kind:         domain.JobDownload,
		ConnectionID: connectionID,
		DocumentID:   documentID,
		Token:        token,
	}
	if err := s.queue.Publish(ctx, job); err != nil {
		return fmt.Errorf("enqueue download: %w", err)
	}
	logger.Debug("download: queued %s for connection %s", documentID, connectionID)
	return nil
}

// Download streams one document from the provider into blob storage.
func (s *DownloadService) Download(ctx context.Context, job domain.Job) error {
	doc, err := s.docs.Get(ctx, job.ConnectionID, job.DocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NonRetriable(fmt.Errorf("document %s: %w", job.DocumentID, err))
		}
		return fmt.Errorf("get document: %w", err)
	}
	if !doc.IsLeaf() {
		return domain.NonRetriablef("%w: document %s is a folder", domain.ErrInvalidInput, doc.ID)
	}

	inProgress := domain.DownloadInProgress
	if err := s.docs.SetDownloadState(ctx, doc.ConnectionID, doc.ID, inProgress, nil, nil); err != nil {
		return fmt.Errorf("mark in progress: %w", err)
	}

	key, err := s.fetch(ctx, job, doc)
	if err != nil {
		msg := err.Error()
		if serr := s.docs.SetDownloadState(ctx, doc.ConnectionID, doc.ID, domain.DownloadFailed, nil, &msg); serr != nil {
			logger.Warn("download: mark %s failed: %v", doc.ID, serr)
		}
		return err
	}

	if err := s.docs.SetDownloadState(ctx, doc.ConnectionID, doc.ID, domain.DownloadDone, &key, nil); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	logger.Info("Downloaded document %s of connection %s", doc.ID, doc.ConnectionID)
	return nil
}

func (s *DownloadService) fetch(ctx context.Context, job domain.Job, doc *domain.Document) (string, error) {
	conn, err := s.connections.Get(ctx, job.ConnectionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.NonRetriable(fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, job.ConnectionID))
		}
		return "", fmt.Errorf("get connection: %w", err)
	}

	source, err := s.factory.Create(ctx, *conn, job.Token)
	if err != nil {
		return "", fmt.Errorf("create connector: %w", err)
	}
	defer source.Close()

	dl, err := source.Download(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, domain.ErrConnectionNotFound) || errors.Is(err, domain.ErrNotFound) {
			return "", domain.NonRetriable(err)
		}
		return "", fmt.Errorf("download: %w", err)
	}
	defer dl.Body.Close()

	key := StorageKey(doc.ConnectionID, doc.ID)
	info := driven.BlobInfo{ContentType: dl.ContentType, Size: dl.ContentLength}
	if _, err := s.blobs.Put(ctx, key, dl.Body, info); err != nil {
		return "", fmt.Errorf("store content: %w", err)
	}
	return key, nil
}

// StorageKey returns the blob key of a document's content. Provider ids
// are opaque, so the key spreads a hash of the id over three directory
// levels below the connection.
func StorageKey(connectionID, documentID string) string {
	sum := sha256.Sum256([]byte(documentID))
	h := hex.EncodeToString(sum[:])
	return path.Join(connectionID, h[0:2], h[2:4], h[4:6], h)
}
