package driven

import (
	"context"
	"io"
)

// BlobInfo describes stored content.
type BlobInfo struct {
	ContentType string
	Size        int64
}

// BlobStore holds downloaded document content.
type BlobStore interface {
	// Put writes r under key and returns the number of bytes written.
	Put(ctx context.Context, key string, r io.Reader, info BlobInfo) (int64, error)

	// Open returns the content stored under key.
	// Returns domain.ErrNotFound if absent.
	Open(ctx context.Context, key string) (io.ReadCloser, *BlobInfo, error)

	// Delete removes the content under key.
	Delete(ctx context.Context, key string) error
}
