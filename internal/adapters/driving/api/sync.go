package api

import (
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// startSyncRequest is the body of POST /api/integrations/{connectionId}/sync.
type startSyncRequest struct {
	IntegrationID   string   `json:"integrationId"`
	IntegrationName string   `json:"integrationName"`
	IntegrationLogo string   `json:"integrationLogo,omitempty"`
	DocumentIDs     []string `json:"documentIds"`
}

func (r startSyncRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IntegrationName, validation.Length(0, 255)),
		validation.Field(&r.IntegrationLogo, is.URL),
		validation.Field(&r.DocumentIDs, validation.Each(validation.Required)),
	)
}

// syncStartResponse mirrors the sync status of a start request.
type syncStartResponse struct {
	Status  domain.SyncStatus `json:"status"`
	SyncID  string            `json:"syncId,omitempty"`
	Message string            `json:"message,omitempty"`
}

func (s *Server) startSync(w http.ResponseWriter, r *http.Request) {
	connectionID := r.PathValue("connectionId")

	var body startSyncRequest
	if err := parseJSON(w, r, &body); err != nil {
		s.failStart(w, err)
		return
	}
	if err := body.Validate(); err != nil {
		s.failStart(w, errors.Join(domain.ErrInvalidInput, err))
		return
	}

	sync, err := s.syncs.StartSync(r.Context(), driving.StartSyncRequest{
		ConnectionID: connectionID,
		UserID:       userID(r),
		Token:        r.Header.Get(AppTokenHeader),
		DocumentIDs:  body.DocumentIDs,
		Integration: domain.IntegrationMeta{
			ID:   body.IntegrationID,
			Name: body.IntegrationName,
			Logo: body.IntegrationLogo,
		},
	})
	if err != nil {
		s.failStart(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, syncStartResponse{Status: sync.Status, SyncID: sync.ID})
}

func (s *Server) failStart(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := "Failed to start sync"
	switch {
	case errors.Is(err, domain.ErrNoDocumentIDs):
		msg = domain.ErrNoDocumentIDs.Error()
	case errors.Is(err, domain.ErrSyncInProgress):
		msg = "A sync is already in progress for this connection"
	case status == http.StatusNotFound:
		msg = "Connection not found"
	case status == http.StatusBadRequest:
		msg = "Invalid sync request"
	default:
		logger.Error("Failed to start sync: %v", err)
	}
	respondJSON(w, status, syncStartResponse{Status: domain.SyncFailed, Message: msg})
}

func (s *Server) teardownSync(w http.ResponseWriter, r *http.Request) {
	if err := s.syncs.Teardown(r.Context(), r.PathValue("connectionId")); err != nil {
		logger.Error("Failed to delete sync data: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete sync data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// syncStatusResponse is the latest sync of a connection.
type syncStatusResponse struct {
	Status          domain.SyncStatus `json:"status"`
	Error           *string           `json:"error"`
	StartedAt       *time.Time        `json:"startedAt"`
	CompletedAt     *time.Time        `json:"completedAt"`
	IsTruncated     bool              `json:"isTruncated"`
	DocumentsSynced int               `json:"documentsSynced"`
}

func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	connectionID := r.PathValue("connectionId")

	sync, err := s.history.Latest(r.Context(), connectionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Sync does not exist")
			return
		}
		logger.Error("Failed to get sync status: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to get sync status")
		return
	}

	resp := syncStatusResponse{
		Status:          sync.Status,
		Error:           sync.Error,
		StartedAt:       timePtr(sync.StartedAt),
		CompletedAt:     sync.CompletedAt,
		IsTruncated:     sync.IsTruncated,
		DocumentsSynced: len(sync.ActualSyncedDocumentIDs),
	}
	if p := s.syncs.Progress(connectionID); p != nil && p.SyncID == sync.ID {
		resp.DocumentsSynced = p.DocumentsSynced
	}
	respondJSON(w, http.StatusOK, resp)
}

// syncItem is one entry of a history listing.
type syncItem struct {
	ID                      string            `json:"id"`
	ConnectionID            string            `json:"connectionId,omitempty"`
	IntegrationID           string            `json:"integrationId,omitempty"`
	IntegrationName         string            `json:"integrationName,omitempty"`
	IntegrationLogo         string            `json:"integrationLogo,omitempty"`
	Status                  domain.SyncStatus `json:"status"`
	Error                   *string           `json:"error"`
	StartedAt               *time.Time        `json:"startedAt"`
	CompletedAt             *time.Time        `json:"completedAt"`
	IsTruncated             bool              `json:"isTruncated"`
	DocumentIDs             []string          `json:"documentIds"`
	ActualSyncedDocumentIDs []string          `json:"actualSyncedDocumentIds"`
	CreatedAt               time.Time         `json:"createdAt"`
}

type syncListResponse struct {
	Syncs []syncItem `json:"syncs"`
	Total int        `json:"total"`
}

func toSyncItem(s domain.Sync, withIntegration bool) syncItem {
	item := syncItem{
		ID:                      s.ID,
		Status:                  s.Status,
		Error:                   s.Error,
		StartedAt:               timePtr(s.StartedAt),
		CompletedAt:             s.CompletedAt,
		IsTruncated:             s.IsTruncated,
		DocumentIDs:             s.DocumentIDs,
		ActualSyncedDocumentIDs: s.ActualSyncedDocumentIDs,
		CreatedAt:               s.CreatedAt,
	}
	if withIntegration {
		item.ConnectionID = s.ConnectionID
		item.IntegrationID = s.IntegrationID
		item.IntegrationName = s.IntegrationName
		item.IntegrationLogo = s.IntegrationLogo
	}
	return item
}

func toSyncList(syncs []domain.Sync, withIntegration bool) syncListResponse {
	items := make([]syncItem, 0, len(syncs))
	for _, s := range syncs {
		items = append(items, toSyncItem(s, withIntegration))
	}
	return syncListResponse{Syncs: items, Total: len(items)}
}

func (s *Server) syncHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	syncs, err := s.history.History(r.Context(), r.PathValue("connectionId"), q.Limit)
	if err != nil {
		logger.Error("Failed to get sync history: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to get sync history")
		return
	}
	respondJSON(w, http.StatusOK, toSyncList(syncs, false))
}

func (s *Server) recentSyncs(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	syncs, err := s.history.Recent(r.Context(), userID(r), q.Limit)
	if err != nil {
		logger.Error("Failed to get recent syncs: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to get recent syncs")
		return
	}
	respondJSON(w, http.StatusOK, toSyncList(syncs, true))
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
