package domain

// WebhookFields are the document fields carried by a provider event.
type WebhookFields struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
	ParentID        *string `json:"parentId,omitempty"`
	CanHaveChildren bool    `json:"canHaveChildren"`
	ResourceURI     string  `json:"resourceURI"`
}

// WebhookEvent is a document created or updated notification.
type WebhookEvent struct {
	ConnectionID string        `json:"connectionId"`
	Fields       WebhookFields `json:"fields"`
}

// ToDocument converts the event into a Document owned by userID.
func (e WebhookEvent) ToDocument(userID string) Document {
	return Document{
		ID:              e.Fields.ID,
		ConnectionID:    e.ConnectionID,
		UserID:          userID,
		Title:           e.Fields.Title,
		CanHaveChildren: e.Fields.CanHaveChildren,
		CanDownload:     !e.Fields.CanHaveChildren,
		ResourceURI:     e.Fields.ResourceURI,
		CreatedAt:       e.Fields.CreatedAt,
		UpdatedAt:       e.Fields.UpdatedAt,
		ParentID:        e.Fields.ParentID,
	}
}
