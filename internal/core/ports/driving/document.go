package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// DocumentService reads mirrored documents.
type DocumentService interface {
	// List returns the documents of a connection owned by userID.
	List(ctx context.Context, userID, connectionID string) ([]domain.Document, error)

	// Content returns extracted text, or "" when none is available.
	Content(ctx context.Context, connectionID, id string) (string, error)

	// Open streams the downloaded content of a document.
	// storageKey must match the key recorded on the document.
	Open(ctx context.Context, connectionID, id, storageKey string) (*DocumentStream, error)
}

// DocumentStream is downloaded content ready to be served.
type DocumentStream struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	Filename    string
}

// DownloadTrigger fetches leaf document content in the background.
type DownloadTrigger interface {
	// TriggerDownload enqueues a download and returns immediately.
	TriggerDownload(ctx context.Context, token, connectionID, documentID string) error

	// Download executes a queued download job.
	Download(ctx context.Context, job domain.Job) error
}
