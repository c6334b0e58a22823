package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/blob"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/queue/memory"
	memstore "github.com/custodia-labs/sercha-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-sync/internal/connectors"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/services"
)

// flatSource resolves every id to a leaf document except "missing".
type flatSource struct{}

func (flatSource) FindByID(_ context.Context, id string) (*domain.DocumentRecord, error) {
	if id == "missing" {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return &domain.DocumentRecord{
		ID:          id,
		Title:       "Title " + id,
		CanDownload: true,
		ResourceURI: "https://example.com/" + id,
		CreatedAt:   "2024-01-01T00:00:00Z",
		UpdatedAt:   "2024-01-02T00:00:00Z",
	}, nil
}

func (flatSource) ListChildren(context.Context, string, string) (*domain.DocumentPage, error) {
	return &domain.DocumentPage{}, nil
}

func (flatSource) Download(context.Context, string) (*driven.Download, error) {
	return nil, errors.New("download not supported")
}

func (flatSource) Close() error { return nil }

// testEnv holds the stores behind the installed services.
type testEnv struct {
	connections *memstore.ConnectionStore
	syncs       *memstore.SyncStore
	docs        *memstore.DocumentStore
	queue       *memory.Queue
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		connections: memstore.NewConnectionStore(),
		syncs:       memstore.NewSyncStore(),
		docs:        memstore.NewDocumentStore(),
		queue:       memory.New(),
	}
	factory := connectors.NewFactory()
	factory.Register(domain.IntegrationBox, func(domain.Connection, string) (driven.DocumentSource, error) {
		return flatSource{}, nil
	})

	steps := services.NewStepRunner(memstore.NewStepLedger(), services.StepOptions{
		Timeout: time.Second, Attempts: 1, Backoff: time.Millisecond,
	})
	syncSvc := services.NewSyncController(env.connections, env.syncs, env.docs, factory, env.queue, steps,
		services.SyncOptions{MaxDocuments: 100})
	downloads := services.NewDownloadService(env.connections, env.docs, factory,
		blob.NewWithFs(afero.NewMemMapFs()), env.queue)

	oldServices, oldPoll := installed, pollInterval
	SetServices(&Services{
		Syncs:       syncSvc,
		History:     services.NewHistoryService(env.syncs),
		Connections: services.NewConnectionService(env.connections, factory),
		Documents:   services.NewDocumentService(env.docs, nil),
		Webhooks:    services.NewWebhookService(env.docs, downloads),
		Worker: services.NewJobWorker(env.queue, syncSvc, downloads, services.WorkerOptions{
			Concurrency: 1, MaxDeliveries: 1, RetryBackoff: time.Millisecond,
		}),
	})
	pollInterval = 5 * time.Millisecond
	t.Cleanup(func() {
		installed, pollInterval = oldServices, oldPoll
		_ = env.queue.Close()
	})
	return env
}

func (e *testEnv) addConnection(t *testing.T, id string) {
	t.Helper()
	if err := e.connections.Save(context.Background(), &domain.Connection{
		ID: id, UserID: "user-1", IntegrationKey: domain.IntegrationBox, IntegrationName: "Box",
	}); err != nil {
		t.Fatal(err)
	}
}

// resetFlags clears flag values left by a previous execution.
func resetFlags() {
	connUser, connID, connName, connLogo, connToken, connBaseURL = "", "", "", "", "", ""
	syncUser, syncToken, syncName = "", "", ""
	syncWait, syncTUI, syncTeardown = false, false, false
	syncLimit = 0
	serveAddr = ""
	tokenTTL = 24 * time.Hour
	verbose = false
}

// execute runs the root command with an isolated config file.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeIn(t, t.TempDir(), args...)
}

// executeIn runs the root command with the config file in dir.
func executeIn(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.toml"),
		"--env-file", filepath.Join(dir, "missing.env"),
	}, args...))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
