package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Ensure WebhookService implements the interface.
var _ driving.WebhookService = (*WebhookService)(nil)

// Webhook payload limits.
const (
	maxWebhookIDLength    = 100
	maxWebhookTitleLength = 255
	maxResourceURILength  = 2048
)

// WebhookService applies provider document events to tracked documents.
type WebhookService struct {
	docs      driven.DocumentStore
	downloads driving.DownloadTrigger
}

// NewWebhookService creates a webhook service.
func NewWebhookService(docs driven.DocumentStore, downloads driving.DownloadTrigger) *WebhookService {
	return &WebhookService{docs: docs, downloads: downloads}
}

// OnCreate tracks a new document only when its parent is already tracked
// for the same connection. New leaf documents are downloaded.
func (s *WebhookService) OnCreate(ctx context.Context, userID, token string, ev domain.WebhookEvent) (*driving.WebhookOutcome, error) {
	if err := ValidateWebhookEvent(ev); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, domain.NonRetriablef("%w: %w for connection %s", domain.ErrInvalidInput, domain.ErrUserNotFound, ev.ConnectionID)
	}

	ignored := &driving.WebhookOutcome{Action: driving.WebhookIgnored}

	exists, err := s.docs.Exists(ctx, ev.ConnectionID, ev.Fields.ID)
	if err != nil {
		return nil, fmt.Errorf("check document: %w", err)
	}
	if exists {
		logger.Debug("webhook: document %s already exists", ev.Fields.ID)
		return ignored, nil
	}

	if ev.Fields.ParentID == nil || *ev.Fields.ParentID == "" {
		return ignored, nil
	}
	parentTracked, err := s.docs.Exists(ctx, ev.ConnectionID, *ev.Fields.ParentID)
	if err != nil {
		return nil, fmt.Errorf("check parent: %w", err)
	}
	if !parentTracked {
		logger.Debug("webhook: parent %s of %s is not tracked", *ev.Fields.ParentID, ev.Fields.ID)
		return ignored, nil
	}

	doc := ev.ToDocument(userID)
	if err := s.docs.Insert(ctx, &doc); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return ignored, nil
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}

	out := &driving.WebhookOutcome{Action: driving.WebhookCreated}
	if doc.IsLeaf() {
		if err := s.downloads.TriggerDownload(ctx, token, ev.ConnectionID, doc.ID); err != nil {
			return nil, err
		}
		out.DownloadTriggered = true
	}
	logger.Info("Tracked new document %s under %s", doc.ID, *doc.ParentID)
	return out, nil
}

// OnUpdate overwrites the metadata of a tracked document and downloads it
// again when it is a leaf. Untracked documents are ignored.
func (s *WebhookService) OnUpdate(ctx context.Context, token string, ev domain.WebhookEvent) (*driving.WebhookOutcome, error) {
	if err := ValidateWebhookEvent(ev); err != nil {
		return nil, err
	}

	update := domain.MetadataUpdate{
		Title:       ev.Fields.Title,
		UpdatedAt:   ev.Fields.UpdatedAt,
		ResourceURI: ev.Fields.ResourceURI,
		ParentID:    ev.Fields.ParentID,
	}
	if err := s.docs.UpdateMetadata(ctx, ev.ConnectionID, ev.Fields.ID, update); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("webhook: document %s not found", ev.Fields.ID)
			return &driving.WebhookOutcome{Action: driving.WebhookIgnored}, nil
		}
		return nil, fmt.Errorf("update document: %w", err)
	}

	out := &driving.WebhookOutcome{Action: driving.WebhookUpdated}
	if !ev.Fields.CanHaveChildren {
		if err := s.downloads.TriggerDownload(ctx, token, ev.ConnectionID, ev.Fields.ID); err != nil {
			return nil, err
		}
		out.DownloadTriggered = true
	}
	return out, nil
}

// ValidateWebhookEvent checks an event payload. Failures wrap
// domain.ErrInvalidInput and are not retriable.
func ValidateWebhookEvent(ev domain.WebhookEvent) error {
	f := &ev.Fields
	err := validation.Errors{
		"connectionId": validation.Validate(ev.ConnectionID,
			validation.Required, validation.Length(1, maxWebhookIDLength)),
		"fields": validation.ValidateStruct(f,
			validation.Field(&f.ID, validation.Required, validation.Length(1, maxWebhookIDLength)),
			validation.Field(&f.Title, validation.Required, validation.Length(1, maxWebhookTitleLength)),
			validation.Field(&f.CreatedAt, validation.Required, validation.Date(time.RFC3339)),
			validation.Field(&f.UpdatedAt, validation.Required, validation.Date(time.RFC3339)),
			validation.Field(&f.ResourceURI, validation.Required,
				validation.Length(1, maxResourceURILength), is.RequestURL),
		),
	}.Filter()
	if err != nil {
		return domain.NonRetriable(fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}
	return nil
}
