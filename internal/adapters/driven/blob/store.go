// Package blob stores downloaded document content on an afero filesystem.
//
// Each blob is written to its key path with a "<key>.meta" JSON sidecar
// carrying the content type. Writes go to a temporary file that is renamed
// into place, so readers never observe partial content.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

const metaSuffix = ".meta"

// Store is an afero backed driven.BlobStore.
type Store struct {
	fs afero.Fs
}

// New creates a store rooted at dir on the OS filesystem.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &Store{fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}, nil
}

// NewWithFs creates a store backed by a custom afero.Fs.
func NewWithFs(fsys afero.Fs) *Store {
	return &Store{fs: fsys}
}

// Put streams r to key and returns the number of bytes written.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, info driven.BlobInfo) (int64, error) {
	name, err := clean(key)
	if err != nil {
		return 0, err
	}
	if err := s.fs.MkdirAll(path.Dir(name), 0750); err != nil {
		return 0, fmt.Errorf("creating blob directory: %w", err)
	}

	tmp := name + ".tmp-" + uuid.NewString()
	f, err := s.fs.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating blob: %w", err)
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(tmp)
		return n, fmt.Errorf("writing blob %s: %w", key, err)
	}

	info.Size = n
	meta, err := json.Marshal(info)
	if err != nil {
		_ = s.fs.Remove(tmp)
		return n, fmt.Errorf("encoding blob info: %w", err)
	}
	if err := afero.WriteFile(s.fs, name+metaSuffix, meta, 0640); err != nil {
		_ = s.fs.Remove(tmp)
		return n, fmt.Errorf("writing blob info: %w", err)
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return n, fmt.Errorf("committing blob %s: %w", key, err)
	}
	return n, nil
}

// Open returns the content under key.
func (s *Store) Open(_ context.Context, key string) (io.ReadCloser, *driven.BlobInfo, error) {
	name, err := clean(key)
	if err != nil {
		return nil, nil, err
	}

	f, err := s.fs.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening blob: %w", err)
	}

	info := driven.BlobInfo{}
	if raw, err := afero.ReadFile(s.fs, name+metaSuffix); err == nil {
		_ = json.Unmarshal(raw, &info)
	}
	if st, err := f.Stat(); err == nil {
		info.Size = st.Size()
	}
	return f, &info, nil
}

// Delete removes the content under key. Missing keys are ignored.
func (s *Store) Delete(_ context.Context, key string) error {
	name, err := clean(key)
	if err != nil {
		return err
	}
	for _, p := range []string{name, name + metaSuffix} {
		if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting blob: %w", err)
		}
	}
	return nil
}

// clean rejects keys that escape the store root.
func clean(key string) (string, error) {
	name := path.Clean("/" + key)
	if name == "/" || strings.HasSuffix(name, metaSuffix) {
		return "", fmt.Errorf("%w: blob key %q", domain.ErrInvalidInput, key)
	}
	return name, nil
}

// ctxReader stops a copy when its context ends.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
