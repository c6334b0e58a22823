package box

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/connectors/rest"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.DocumentSource = (*Connector)(nil)

const (
	// DefaultBaseURL is the Box content API.
	DefaultBaseURL = "https://api.box.com/2.0"

	// PageSize is the number of entries requested per listing page.
	PageSize = 100
)

// Connector reads documents from a Box account.
type Connector struct {
	client *rest.Client
	mu     sync.Mutex
	closed bool
}

// New creates a Box connector. An empty baseURL selects DefaultBaseURL.
func New(baseURL, token string) (*Connector, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client, err := rest.NewClient(rest.Options{
		Provider: domain.IntegrationBox,
		BaseURL:  baseURL,
		Token:    token,
	})
	if err != nil {
		return nil, err
	}
	return &Connector{client: client}, nil
}

// NewFromConnection builds a connector for a stored connection.
func NewFromConnection(conn domain.Connection, token string) (driven.DocumentSource, error) {
	return New(conn.BaseURL, token)
}

// FindByID returns the metadata of a file or folder.
func (c *Connector) FindByID(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	itemID, err := ParseItemID(id)
	if err != nil {
		return nil, err
	}

	var it item
	query := url.Values{"fields": {itemFields}}
	if err := c.client.GetJSON(ctx, collection(itemID.Type)+"/"+url.PathEscape(itemID.ID), query, &it); err != nil {
		return nil, fmt.Errorf("find %s: %w", id, err)
	}
	if it.Type == "" {
		it.Type = itemID.Type
	}
	rec := it.record()
	return &rec, nil
}

// ListChildren returns one page of a folder's items. Files have no children.
func (c *Connector) ListChildren(ctx context.Context, parentID, cursor string) (*domain.DocumentPage, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	itemID, err := ParseItemID(parentID)
	if err != nil {
		return nil, err
	}
	if itemID.Type != TypeFolder {
		return &domain.DocumentPage{}, nil
	}

	query := url.Values{
		"fields":    {itemFields},
		"usemarker": {"true"},
		"limit":     {fmt.Sprint(PageSize)},
	}
	if cursor != "" {
		query.Set("marker", cursor)
	}

	var page itemsPage
	if err := c.client.GetJSON(ctx, "folders/"+url.PathEscape(itemID.ID)+"/items", query, &page); err != nil {
		return nil, fmt.Errorf("list %s: %w", parentID, err)
	}

	records := make([]domain.DocumentRecord, 0, len(page.Entries))
	for _, it := range page.Entries {
		if it.Type != TypeFile && it.Type != TypeFolder {
			continue // web links
		}
		if it.Parent == nil {
			it.Parent = &ref{ID: itemID.ID, Type: TypeFolder}
		}
		records = append(records, it.record())
	}

	return &domain.DocumentPage{Records: records, Cursor: page.NextMarker}, nil
}

// Download opens the content of a file.
func (c *Connector) Download(ctx context.Context, id string) (*driven.Download, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	itemID, err := ParseItemID(id)
	if err != nil {
		return nil, err
	}
	if itemID.Type != TypeFile {
		return nil, fmt.Errorf("%w: box %s is not downloadable", domain.ErrUnsupportedType, itemID.Type)
	}

	resp, err := c.client.Stream(ctx, "files/"+url.PathEscape(itemID.ID)+"/content")
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", id, err)
	}
	return &driven.Download{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Connector) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrConnectorClosed
	}
	return nil
}

func collection(itemType string) string {
	if itemType == TypeFolder {
		return "folders"
	}
	return "files"
}
