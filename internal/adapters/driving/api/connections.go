package api

import (
	"errors"
	"net/http"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// registerConnectionRequest is the body of POST /api/connections.
type registerConnectionRequest struct {
	ID              string `json:"id,omitempty"`
	IntegrationKey  string `json:"integrationKey"`
	IntegrationName string `json:"integrationName"`
	IntegrationLogo string `json:"integrationLogo,omitempty"`
	AccessToken     string `json:"accessToken"`
	BaseURL         string `json:"baseUrl,omitempty"`
}

func (s *Server) registerConnection(w http.ResponseWriter, r *http.Request) {
	var body registerConnectionRequest
	if err := parseJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid connection payload")
		return
	}

	conn, err := s.connections.Register(r.Context(), driving.RegisterConnectionRequest{
		ID:              body.ID,
		UserID:          userID(r),
		IntegrationKey:  body.IntegrationKey,
		IntegrationName: body.IntegrationName,
		IntegrationLogo: body.IntegrationLogo,
		AccessToken:     body.AccessToken,
		BaseURL:         body.BaseURL,
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to register connection: %v", err)
		}
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, conn)
}

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.connections.List(r.Context(), userID(r))
	if err != nil {
		logger.Error("Failed to list connections: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list connections")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"connections": conns})
}

// ownConnection serves next only when the caller owns the path's connection.
// Unknown and foreign connections both answer 404.
func (s *Server) ownConnection(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.connections.Get(r.Context(), r.PathValue("connectionId"))
		switch {
		case err == nil && conn.UserID == userID(r):
			next(w, r)
		case err == nil, errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConnectionNotFound):
			respondError(w, http.StatusNotFound, "Connection not found")
		default:
			logger.Error("Failed to get connection: %v", err)
			respondError(w, http.StatusInternalServerError, "Failed to get connection")
		}
	}
}

// removeConnection archives a connection owned by the caller.
func (s *Server) removeConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.connections.Disconnect(r.Context(), r.PathValue("connectionId")); err != nil {
		logger.Error("Failed to remove connection: %v", err)
		respondError(w, statusFor(err), "Failed to remove connection")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
