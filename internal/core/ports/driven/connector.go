package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// DocumentSource reads the document tree of one provider connection.
// Each integration (box, sharepoint) implements this interface.
type DocumentSource interface {
	// FindByID returns the metadata of a single document.
	// Returns an error wrapping domain.ErrNotFound if the id does not resolve.
	FindByID(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// ListChildren returns one page of the direct children of parentID.
	// An empty cursor requests the first page.
	ListChildren(ctx context.Context, parentID, cursor string) (*domain.DocumentPage, error)

	// Download opens the binary content of a leaf document.
	// The caller must close the returned body.
	Download(ctx context.Context, id string) (*Download, error)

	// Close releases resources.
	Close() error
}

// Download is an open content stream from a provider.
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}
