package sharepoint

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
	// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// PageSize is the $top value for children listings.
	PageSize = 100
)

// Connector reads SharePoint document libraries.
type Connector struct {
	client *rest.Client
	mu     sync.Mutex
	closed bool
}

// New creates a SharePoint connector. An empty baseURL selects DefaultBaseURL.
func New(baseURL, token string) (*Connector, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client, err := rest.NewClient(rest.Options{
		Provider: domain.IntegrationSharePoint,
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

// FindByID returns a site, drive or drive item.
func (c *Connector) FindByID(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ref, err := ParseRef(id)
	if err != nil {
		return nil, err
	}

	var rec domain.DocumentRecord
	switch ref.Kind {
	case KindSite:
		var s site
		if err := c.client.GetJSON(ctx, sitePath(ref), nil, &s); err != nil {
			return nil, fmt.Errorf("find %s: %w", id, err)
		}
		if s.ID == "" {
			s.ID = ref.SiteID
		}
		rec = s.record()
	case KindDrive:
		var d drive
		if err := c.client.GetJSON(ctx, drivePath(ref), nil, &d); err != nil {
			return nil, fmt.Errorf("find %s: %w", id, err)
		}
		rec = d.record(ref.SiteID)
	default:
		var it driveItem
		if err := c.client.GetJSON(ctx, itemPath(ref), nil, &it); err != nil {
			return nil, fmt.Errorf("find %s: %w", id, err)
		}
		rec = it.record(DriveRef(ref.SiteID, ref.DriveID))
	}
	return &rec, nil
}

// ListChildren lists the drives of a site or one page of a folder.
// The cursor is the absolute @odata.nextLink of the previous page.
func (c *Connector) ListChildren(ctx context.Context, parentID, cursor string) (*domain.DocumentPage, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ref, err := ParseRef(parentID)
	if err != nil {
		return nil, err
	}

	if ref.Kind == KindSite {
		return c.listDrives(ctx, ref)
	}

	target := cursor
	var query url.Values
	if target == "" {
		target = drivePath(ref) + "/items/" + url.PathEscape(ref.folder()) + "/children"
		query = url.Values{"$top": {fmt.Sprint(PageSize)}}
	}

	var page itemsPage
	if err := c.client.GetJSON(ctx, target, query, &page); err != nil {
		return nil, fmt.Errorf("list %s: %w", parentID, err)
	}

	records := make([]domain.DocumentRecord, 0, len(page.Value))
	for _, it := range page.Value {
		records = append(records, it.record(ref))
	}
	return &domain.DocumentPage{Records: records, Cursor: page.NextLink}, nil
}

// listDrives returns every drive of a site. A site the token cannot
// read yields no drives.
func (c *Connector) listDrives(ctx context.Context, ref Ref) (*domain.DocumentPage, error) {
	var page drivesPage
	if err := c.client.GetJSON(ctx, sitePath(ref)+"/drives", nil, &page); err != nil {
		if isForbidden(err) {
			return &domain.DocumentPage{}, nil
		}
		return nil, fmt.Errorf("list drives %s: %w", ref.SiteID, err)
	}

	records := make([]domain.DocumentRecord, 0, len(page.Value))
	for _, d := range page.Value {
		records = append(records, d.record(ref.SiteID))
	}
	return &domain.DocumentPage{Records: records}, nil
}

// Download opens the content of a file item.
func (c *Connector) Download(ctx context.Context, id string) (*driven.Download, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ref, err := ParseRef(id)
	if err != nil {
		return nil, err
	}
	if ref.Kind != KindItem {
		return nil, fmt.Errorf("%w: sharepoint id %s is not a file", domain.ErrUnsupportedType, id)
	}

	resp, err := c.client.Stream(ctx, itemPath(ref)+"/content")
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

func sitePath(ref Ref) string {
	return "sites/" + url.PathEscape(ref.SiteID)
}

func drivePath(ref Ref) string {
	return sitePath(ref) + "/drives/" + url.PathEscape(ref.DriveID)
}

func itemPath(ref Ref) string {
	return drivePath(ref) + "/items/" + url.PathEscape(ref.FileID)
}
