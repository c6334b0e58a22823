package api

import (
	"errors"
	"net/http"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// onCreate tracks a document created at the provider. The app token must
// verify and its subject names the owner.
func (s *Server) onCreate(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(AppTokenHeader)
	sub, err := s.auth.Verify(token)
	if token == "" || err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var ev domain.WebhookEvent
	if err := parseJSON(w, r, &ev); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	out, err := s.webhooks.OnCreate(r.Context(), sub, token, ev)
	if err != nil {
		s.failWebhook(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// onUpdate refreshes a tracked document.
func (s *Server) onUpdate(w http.ResponseWriter, r *http.Request) {
	var ev domain.WebhookEvent
	if err := parseJSON(w, r, &ev); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	out, err := s.webhooks.OnUpdate(r.Context(), r.Header.Get(AppTokenHeader), ev)
	if err != nil {
		s.failWebhook(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) failWebhook(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		msg := "Invalid webhook payload"
		if errors.Is(err, domain.ErrUserNotFound) {
			msg = "User ID not found for connection"
		}
		logger.Warn("webhook rejected: %v", err)
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	logger.Error("Error processing webhook: %v", err)
	respondError(w, http.StatusInternalServerError, "Internal Server Error")
}
