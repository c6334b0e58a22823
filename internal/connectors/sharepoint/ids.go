package sharepoint

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// Kind is the level of the Graph hierarchy an id points at.
type Kind int

// Kinds.
const (
	KindSite Kind = iota + 1
	KindDrive
	KindItem
)

// rootFolder is the drive root alias in Graph paths.
const rootFolder = "root"

type siteID struct {
	SiteID string `json:"siteId"`
}

type driveID struct {
	ID      string `json:"id"`
	SiteID  string `json:"siteId"`
	DriveID string `json:"driveId"`
}

type itemID struct {
	FileID  string `json:"fileId"`
	SiteID  string `json:"siteId"`
	DriveID string `json:"driveId"`
}

// Ref is a decoded document id.
type Ref struct {
	Kind    Kind
	SiteID  string
	DriveID string
	FileID  string
}

// SiteRef returns the ref of a site.
func SiteRef(site string) Ref {
	return Ref{Kind: KindSite, SiteID: site}
}

// DriveRef returns the ref of a drive root.
func DriveRef(site, drive string) Ref {
	return Ref{Kind: KindDrive, SiteID: site, DriveID: drive}
}

// ItemRef returns the ref of a drive item.
func ItemRef(site, drive, file string) Ref {
	return Ref{Kind: KindItem, SiteID: site, DriveID: drive, FileID: file}
}

// String returns the JSON encoded document id.
func (r Ref) String() string {
	var v any
	switch r.Kind {
	case KindSite:
		v = siteID{SiteID: r.SiteID}
	case KindDrive:
		v = driveID{ID: rootFolder, SiteID: r.SiteID, DriveID: r.DriveID}
	default:
		v = itemID{FileID: r.FileID, SiteID: r.SiteID, DriveID: r.DriveID}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// folder returns the Graph item path segment for listing children.
func (r Ref) folder() string {
	if r.Kind == KindItem {
		return r.FileID
	}
	return rootFolder
}

// ParseRef decodes a document id.
func ParseRef(s string) (Ref, error) {
	var raw struct {
		ID      string `json:"id"`
		SiteID  string `json:"siteId"`
		DriveID string `json:"driveId"`
		FileID  string `json:"fileId"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Ref{}, fmt.Errorf("%w: invalid sharepoint id %q", domain.ErrInvalidInput, s)
	}

	switch {
	case raw.SiteID != "" && raw.DriveID != "" && raw.FileID != "":
		return ItemRef(raw.SiteID, raw.DriveID, raw.FileID), nil
	case raw.SiteID != "" && raw.DriveID != "":
		return DriveRef(raw.SiteID, raw.DriveID), nil
	case raw.SiteID != "":
		return SiteRef(raw.SiteID), nil
	default:
		return Ref{}, fmt.Errorf("%w: invalid sharepoint id structure %q", domain.ErrInvalidInput, s)
	}
}

// shortSiteID extracts the site GUID from a composite
// "hostname,siteGuid,webGuid" Graph site id.
func shortSiteID(id string) string {
	parts := strings.Split(id, ",")
	if len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	return id
}
