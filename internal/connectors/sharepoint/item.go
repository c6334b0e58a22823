package sharepoint

import (
	"strings"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

type site struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	DisplayName          string `json:"displayName"`
	WebURL               string `json:"webUrl"`
	CreatedDateTime      string `json:"createdDateTime"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
}

type drive struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	WebURL               string `json:"webUrl"`
	CreatedDateTime      string `json:"createdDateTime"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
}

type parentReference struct {
	ID      string `json:"id"`
	SiteID  string `json:"siteId"`
	DriveID string `json:"driveId"`
	Path    string `json:"path"`
}

type driveItem struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	WebURL               string           `json:"webUrl"`
	CreatedDateTime      string           `json:"createdDateTime"`
	LastModifiedDateTime string           `json:"lastModifiedDateTime"`
	ParentReference      *parentReference `json:"parentReference"`
	File                 *struct{}        `json:"file"`
	Folder               *struct{}        `json:"folder"`
}

type drivesPage struct {
	Value []drive `json:"value"`
}

type itemsPage struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

func (s site) record() domain.DocumentRecord {
	title := s.DisplayName
	if title == "" {
		title = s.Name
	}
	return domain.DocumentRecord{
		ID:              SiteRef(shortSiteID(s.ID)).String(),
		Title:           title,
		CanHaveChildren: true,
		ResourceURI:     s.WebURL,
		CreatedAt:       s.CreatedDateTime,
		UpdatedAt:       s.LastModifiedDateTime,
	}
}

func (d drive) record(siteID string) domain.DocumentRecord {
	parent := SiteRef(siteID).String()
	return domain.DocumentRecord{
		ID:              DriveRef(siteID, d.ID).String(),
		Title:           d.Name,
		CanHaveChildren: true,
		ResourceURI:     d.WebURL,
		CreatedAt:       d.CreatedDateTime,
		UpdatedAt:       d.LastModifiedDateTime,
		ParentID:        &parent,
	}
}

// record maps a drive item. fallback supplies coordinates the listing
// response may omit from parentReference.
func (it driveItem) record(fallback Ref) domain.DocumentRecord {
	pr := parentReference{}
	if it.ParentReference != nil {
		pr = *it.ParentReference
	}
	if pr.SiteID == "" {
		pr.SiteID = fallback.SiteID
	} else {
		pr.SiteID = shortSiteID(pr.SiteID)
	}
	if pr.DriveID == "" {
		pr.DriveID = fallback.DriveID
	}

	var parent string
	switch {
	case strings.HasSuffix(pr.Path, "/root:"):
		parent = DriveRef(pr.SiteID, pr.DriveID).String()
	case pr.ID != "":
		parent = ItemRef(pr.SiteID, pr.DriveID, pr.ID).String()
	default:
		parent = fallback.String()
	}

	return domain.DocumentRecord{
		ID:              ItemRef(pr.SiteID, pr.DriveID, it.ID).String(),
		Title:           it.Name,
		CanHaveChildren: it.Folder != nil,
		CanDownload:     it.File != nil,
		ResourceURI:     it.WebURL,
		CreatedAt:       it.CreatedDateTime,
		UpdatedAt:       it.LastModifiedDateTime,
		ParentID:        &parent,
	}
}
