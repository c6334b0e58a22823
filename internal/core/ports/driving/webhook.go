package driving

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// WebhookService applies provider document events.
type WebhookService interface {
	// OnCreate tracks a new document if its parent is tracked.
	OnCreate(ctx context.Context, userID, token string, ev domain.WebhookEvent) (*WebhookOutcome, error)

	// OnUpdate refreshes metadata of a tracked document.
	OnUpdate(ctx context.Context, token string, ev domain.WebhookEvent) (*WebhookOutcome, error)
}

// WebhookAction describes what an event did.
type WebhookAction string

// Webhook actions.
const (
	WebhookCreated WebhookAction = "created"
	WebhookUpdated WebhookAction = "updated"
	WebhookIgnored WebhookAction = "ignored"
)

// WebhookOutcome is the result of applying an event.
type WebhookOutcome struct {
	Action            WebhookAction `json:"action"`
	DownloadTriggered bool          `json:"downloadTriggered"`
}
