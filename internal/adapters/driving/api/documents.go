package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context(), userID(r), r.PathValue("connectionId"))
	if err != nil {
		logger.Error("Failed to fetch documents: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch documents")
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) documentContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.documents.Content(r.Context(), r.PathValue("connectionId"), r.PathValue("documentId"))
	if err != nil {
		logger.Error("Failed to get document content: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to get document content")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) streamDocument(w http.ResponseWriter, r *http.Request) {
	storageKey := r.URL.Query().Get("storageKey")
	if storageKey == "" {
		http.Error(w, "Storage key is required", http.StatusBadRequest)
		return
	}

	stream, err := s.documents.Open(r.Context(), r.PathValue("connectionId"), r.PathValue("documentId"), storageKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		logger.Error("Error streaming document: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer stream.Body.Close()

	h := w.Header()
	h.Set("Content-Type", stream.ContentType)
	if stream.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(stream.Size, 10))
	}
	h.Set("Content-Disposition", contentDisposition(stream.Filename))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, stream.Body); err != nil {
		logger.Warn("stream %s: %v", r.PathValue("documentId"), err)
	}
}

func contentDisposition(filename string) string {
	if filename == "" {
		return "attachment"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return fmt.Sprintf("attachment; filename=%q", filename)
}
