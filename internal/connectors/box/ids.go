package box

import (
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// Item types.
const (
	TypeFile   = "file"
	TypeFolder = "folder"
)

// RootFolderID is the id of the account root folder.
const RootFolderID = "0"

// ItemID identifies a Box file or folder.
type ItemID struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// String returns the JSON encoded form used as the document id.
func (i ItemID) String() string {
	b, _ := json.Marshal(i)
	return string(b)
}

// ParseItemID decodes a document id.
func ParseItemID(s string) (ItemID, error) {
	var id ItemID
	if err := json.Unmarshal([]byte(s), &id); err != nil {
		return ItemID{}, fmt.Errorf("%w: invalid box id %q", domain.ErrInvalidInput, s)
	}
	if id.ID == "" {
		return ItemID{}, fmt.Errorf("%w: box id %q has no id", domain.ErrInvalidInput, s)
	}
	switch id.Type {
	case TypeFile, TypeFolder:
	default:
		return ItemID{}, fmt.Errorf("%w: box item type %q", domain.ErrUnsupportedType, id.Type)
	}
	return id, nil
}
