package domain

import "time"

// Integration keys of the supported providers.
const (
	IntegrationBox        = "box"
	IntegrationSharePoint = "sharepoint"
)

// Connection is a registered integration instance owned by a user.
// Removing a connection archives it; running syncs notice lazily.
type Connection struct {
	// ID is the unique identifier for the connection.
	ID string `json:"id" bson:"_id"`

	// UserID owns the connection.
	UserID string `json:"userId" bson:"userId"`

	// IntegrationKey selects the connector ("box", "sharepoint").
	IntegrationKey string `json:"integrationKey" bson:"integrationKey"`

	// IntegrationName and IntegrationLogo are display values.
	IntegrationName string `json:"integrationName" bson:"integrationName"`
	IntegrationLogo string `json:"integrationLogo,omitempty" bson:"integrationLogo,omitempty"`

	// AccessToken authenticates provider API calls.
	AccessToken string `json:"-" bson:"accessToken"`

	// BaseURL overrides the provider API endpoint. Empty uses the default.
	BaseURL string `json:"baseUrl,omitempty" bson:"baseUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
