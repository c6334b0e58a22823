// Package api exposes the sync services over HTTP.
//
// Every /api route except the webhooks requires an HS256 bearer token whose
// subject is the user id. Webhooks authenticate with the integration app
// token header instead.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Services are the driving ports served by the API.
type Services struct {
	Syncs       driving.SyncService
	History     driving.SyncHistory
	Documents   driving.DocumentService
	Webhooks    driving.WebhookService
	Connections driving.ConnectionService
}

// Options configures the HTTP server.
type Options struct {
	Addr        string
	CORSOrigins []string
}

// Server is the HTTP API.
type Server struct {
	syncs       driving.SyncService
	history     driving.SyncHistory
	documents   driving.DocumentService
	webhooks    driving.WebhookService
	connections driving.ConnectionService
	auth        *Authenticator

	opts    Options
	handler http.Handler
}

// NewServer creates the API server and its routes.
func NewServer(svc Services, auth *Authenticator, opts Options) (*Server, error) {
	if auth == nil {
		return nil, errors.New("authenticator is required")
	}
	s := &Server{
		syncs:       svc.Syncs,
		history:     svc.History,
		documents:   svc.Documents,
		webhooks:    svc.Webhooks,
		connections: svc.Connections,
		auth:        auth,
		opts:        opts,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	user := s.auth.requireUser
	owned := func(h http.HandlerFunc) http.HandlerFunc { return user(s.ownConnection(h)) }

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Connections
	mux.HandleFunc("POST /api/connections", user(s.registerConnection))
	mux.HandleFunc("GET /api/connections", user(s.listConnections))
	mux.HandleFunc("DELETE /api/connections/{connectionId}", owned(s.removeConnection))

	// Sync. Start checks ownership in the controller so failures keep the
	// start response shape.
	mux.HandleFunc("POST /api/integrations/{connectionId}/sync", user(s.startSync))
	mux.HandleFunc("DELETE /api/integrations/{connectionId}/sync", owned(s.teardownSync))
	mux.HandleFunc("GET /api/integrations/{connectionId}/sync-status", owned(s.syncStatus))
	mux.HandleFunc("GET /api/integrations/{connectionId}/sync-history", owned(s.syncHistory))
	mux.HandleFunc("GET /api/syncs/recent", user(s.recentSyncs))

	// Documents
	mux.HandleFunc("GET /api/integrations/{connectionId}/documents", owned(s.listDocuments))
	mux.HandleFunc("GET /api/integrations/{connectionId}/documents/{documentId}/content", owned(s.documentContent))
	mux.HandleFunc("GET /api/integrations/{connectionId}/documents/{documentId}/stream", owned(s.streamDocument))

	// Webhooks
	mux.HandleFunc("POST /api/webhooks/on-create", s.onCreate)
	mux.HandleFunc("POST /api/webhooks/on-update", s.onUpdate)

	// Order: CORS → Recovery → Logging → Routes
	var handler http.Handler = mux
	handler = logRequests(handler)
	handler = recoverer(handler)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", AppTokenHeader},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length"},
		AllowCredentials: len(s.opts.CORSOrigins) > 0,
	}).Handler(handler)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening on %s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// recoverer turns handler panics into 500 responses.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				respondError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
