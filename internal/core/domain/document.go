package domain

// DownloadState tracks the content download lifecycle of a leaf document.
type DownloadState string

// Download states.
const (
	DownloadPending    DownloadState = "pending"
	DownloadInProgress DownloadState = "in_progress"
	DownloadDone       DownloadState = "done"
	DownloadFailed     DownloadState = "failed"
)

// Document is a node of a remote document tree mirrored locally.
// The pair (ID, ConnectionID) uniquely identifies a document.
type Document struct {
	// ID is the provider-native, opaque document identifier.
	ID string `json:"id" bson:"id"`

	// ConnectionID links to the Connection the document was discovered through.
	ConnectionID string `json:"connectionId" bson:"connectionId"`

	// UserID is the owner of the document.
	UserID string `json:"userId" bson:"userId"`

	// Title is the human-readable title.
	Title string `json:"title" bson:"title"`

	// CanHaveChildren is true for folders.
	CanHaveChildren bool `json:"canHaveChildren" bson:"canHaveChildren"`

	// CanDownload is true when binary content can be fetched.
	CanDownload bool `json:"canDownload" bson:"canDownload"`

	// ResourceURI is the provider web location.
	ResourceURI string `json:"resourceURI" bson:"resourceURI"`

	// CreatedAt and UpdatedAt are provider timestamps (ISO strings).
	CreatedAt string `json:"createdAt" bson:"createdAt"`
	UpdatedAt string `json:"updatedAt" bson:"updatedAt"`

	// ParentID points to another document of the same connection.
	// Dangling references are tolerated.
	ParentID *string `json:"parentId" bson:"parentId"`

	// Content is extracted text, populated by an external pipeline.
	Content *string `json:"content" bson:"content"`

	// StorageKey points at the downloaded binary in blob storage.
	StorageKey *string `json:"storageKey" bson:"storageKey"`

	// LastSyncedAt is when a sync pass last wrote this document.
	LastSyncedAt *string `json:"lastSyncedAt" bson:"lastSyncedAt"`

	// DownloadState and DownloadError are set by the download trigger.
	DownloadState *DownloadState `json:"downloadState" bson:"downloadState"`
	DownloadError *string        `json:"downloadError" bson:"downloadError"`
}

// IsLeaf reports whether the document is a file rather than a folder.
func (d *Document) IsLeaf() bool {
	return !d.CanHaveChildren
}

// DocumentRecord is the provider-facing metadata of a document as returned
// by a connector lookup or listing.
type DocumentRecord struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	CanHaveChildren bool    `json:"canHaveChildren"`
	CanDownload     bool    `json:"canDownload"`
	ResourceURI     string  `json:"resourceURI"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
	ParentID        *string `json:"parentId,omitempty"`
}

// ToDocument converts a record into a Document owned by the given
// connection and user. Content is always nil for a freshly discovered record.
func (r DocumentRecord) ToDocument(connectionID, userID string) Document {
	return Document{
		ID:              r.ID,
		ConnectionID:    connectionID,
		UserID:          userID,
		Title:           r.Title,
		CanHaveChildren: r.CanHaveChildren,
		CanDownload:     r.CanDownload,
		ResourceURI:     r.ResourceURI,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		ParentID:        r.ParentID,
	}
}

// DocumentPage is one bounded page of a children listing.
type DocumentPage struct {
	// Records are the documents on this page.
	Records []DocumentRecord `json:"records"`

	// Cursor resumes the listing of the same parent.
	// Empty means the listing is exhausted.
	Cursor string `json:"cursor,omitempty"`
}

// HasMore reports whether another page exists for the same parent.
func (p *DocumentPage) HasMore() bool {
	return p.Cursor != ""
}

// MetadataUpdate carries the fields a provider update event may overwrite.
type MetadataUpdate struct {
	Title       string
	UpdatedAt   string
	ResourceURI string
	ParentID    *string
}
