package box

import "github.com/custodia-labs/sercha-sync/internal/core/domain"

// webBase is the Box web app location used for resource URIs.
const webBase = "https://app.box.com"

// itemFields is requested on every lookup and listing.
const itemFields = "type,id,name,created_at,modified_at,parent"

type item struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	Parent     *ref   `json:"parent"`
}

type ref struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type itemsPage struct {
	Entries    []item `json:"entries"`
	NextMarker string `json:"next_marker"`
}

func (it item) record() domain.DocumentRecord {
	rec := domain.DocumentRecord{
		ID:              ItemID{ID: it.ID, Type: it.Type}.String(),
		Title:           it.Name,
		CanHaveChildren: it.Type == TypeFolder,
		CanDownload:     it.Type == TypeFile,
		ResourceURI:     webBase + "/" + it.Type + "/" + it.ID,
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.ModifiedAt,
	}
	if it.Parent != nil && it.Parent.ID != "" && it.Parent.ID != RootFolderID {
		parent := ItemID{ID: it.Parent.ID, Type: TypeFolder}.String()
		rec.ParentID = &parent
	}
	return rec
}
