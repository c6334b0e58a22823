package domain

import "time"

// SyncStatus is the lifecycle state of a Sync.
type SyncStatus string

// Sync states. A Sync moves from in_progress to exactly one terminal state.
const (
	SyncInProgress SyncStatus = "in_progress"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// DefaultSyncErrorMessage is stored when a sync fails without a message.
const DefaultSyncErrorMessage = "Unknown error occurred"

// IntegrationMeta is denormalised integration information shown with a Sync.
type IntegrationMeta struct {
	ID   string `json:"integrationId"`
	Name string `json:"integrationName"`
	Logo string `json:"integrationLogo,omitempty"`
}

// Sync is one execution attempt of the synchronisation job for a connection.
// Retries of the underlying job reuse the same Sync.
type Sync struct {
	ID              string     `json:"id" bson:"_id"`
	UserID          string     `json:"userId" bson:"userId"`
	ConnectionID    string     `json:"connectionId" bson:"connectionId"`
	IntegrationID   string     `json:"integrationId" bson:"integrationId"`
	IntegrationName string     `json:"integrationName" bson:"integrationName"`
	IntegrationLogo string     `json:"integrationLogo,omitempty" bson:"integrationLogo,omitempty"`
	Status          SyncStatus `json:"syncStatus" bson:"syncStatus"`
	StartedAt       time.Time  `json:"syncStartedAt" bson:"syncStartedAt"`

	// CompletedAt is set if and only if Status is terminal.
	CompletedAt *time.Time `json:"syncCompletedAt" bson:"syncCompletedAt"`
	Error       *string    `json:"syncError" bson:"syncError"`

	// IsTruncated is true when the document cap was hit.
	IsTruncated bool `json:"isTruncated" bson:"isTruncated"`

	// DocumentIDs are the root ids originally requested.
	DocumentIDs []string `json:"documentIds" bson:"documentIds"`

	// ActualSyncedDocumentIDs are every id persisted during this run.
	ActualSyncedDocumentIDs []string `json:"actualSyncedDocumentIds" bson:"actualSyncedDocumentIds"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewSync creates an in-progress Sync started at now.
func NewSync(id, connectionID, userID string, meta IntegrationMeta, documentIDs []string, now time.Time) *Sync {
	return &Sync{
		ID:              id,
		UserID:          userID,
		ConnectionID:    connectionID,
		IntegrationID:   meta.ID,
		IntegrationName: meta.Name,
		IntegrationLogo: meta.Logo,
		Status:          SyncInProgress,
		StartedAt:       now,
		DocumentIDs:     documentIDs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsTerminal reports whether the Sync reached completed or failed.
func (s *Sync) IsTerminal() bool {
	return s.Status == SyncCompleted || s.Status == SyncFailed
}

// MarkCompleted transitions the Sync to completed.
func (s *Sync) MarkCompleted(now time.Time, syncedIDs []string, truncated bool) {
	s.Status = SyncCompleted
	s.CompletedAt = &now
	s.Error = nil
	s.IsTruncated = truncated
	s.ActualSyncedDocumentIDs = syncedIDs
	s.UpdatedAt = now
}

// MarkFailed transitions the Sync to failed with a human-readable message.
func (s *Sync) MarkFailed(now time.Time, message string) {
	if message == "" {
		message = DefaultSyncErrorMessage
	}
	s.Status = SyncFailed
	s.CompletedAt = &now
	s.Error = &message
	s.UpdatedAt = now
}
