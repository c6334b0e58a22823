package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/queue/memory"
	memstore "github.com/custodia-labs/sercha-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// --- Mock implementations ---

// fakeSource is an in-memory provider tree.
type fakeSource struct {
	mu       stdsync.Mutex
	records  map[string]domain.DocumentRecord
	children map[string][]string
	content  map[string]string
	pageSize int

	findErr      map[string]error
	listErr      map[string]error
	listFailures map[string]int
	block        bool
	onFind       func(id string)

	findCalls map[string]int
	listCalls map[string]int
	closed    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		records:      make(map[string]domain.DocumentRecord),
		children:     make(map[string][]string),
		content:      make(map[string]string),
		pageSize:     2,
		findErr:      make(map[string]error),
		listErr:      make(map[string]error),
		listFailures: make(map[string]int),
		findCalls:    make(map[string]int),
		listCalls:    make(map[string]int),
	}
}

func (s *fakeSource) folder(id string, parent string) *fakeSource {
	s.add(id, parent, true)
	return s
}

func (s *fakeSource) file(id string, parent string) *fakeSource {
	s.add(id, parent, false)
	return s
}

func (s *fakeSource) add(id, parent string, folder bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := domain.DocumentRecord{
		ID:              id,
		Title:           "Title " + id,
		CanHaveChildren: folder,
		CanDownload:     !folder,
		ResourceURI:     "https://example.com/" + id,
		CreatedAt:       "2024-01-01T00:00:00Z",
		UpdatedAt:       "2024-01-02T00:00:00Z",
	}
	if parent != "" {
		p := parent
		rec.ParentID = &p
		s.children[parent] = append(s.children[parent], id)
	}
	s.records[id] = rec
}

func (s *fakeSource) FindByID(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	s.mu.Lock()
	s.findCalls[id]++
	block, hook, err := s.block, s.onFind, s.findErr[id]
	rec, ok := s.records[id]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if hook != nil {
		hook(id)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fake: %s: %w", id, domain.ErrNotFound)
	}
	return &rec, nil
}

func (s *fakeSource) ListChildren(_ context.Context, parentID, cursor string) (*domain.DocumentPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls[parentID]++

	if s.listFailures[parentID] > 0 {
		s.listFailures[parentID]--
		return nil, fmt.Errorf("fake: transient failure listing %s", parentID)
	}
	if err := s.listErr[parentID]; err != nil {
		return nil, err
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("fake: bad cursor %q: %w", cursor, domain.ErrInvalidInput)
		}
		offset = n
	}

	ids := s.children[parentID]
	end := min(offset+s.pageSize, len(ids))
	page := &domain.DocumentPage{Records: []domain.DocumentRecord{}}
	for _, id := range ids[offset:end] {
		page.Records = append(page.Records, s.records[id])
	}
	if end < len(ids) {
		page.Cursor = strconv.Itoa(end)
	}
	return page, nil
}

func (s *fakeSource) Download(_ context.Context, id string) (*driven.Download, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.content[id]
	if !ok {
		return nil, fmt.Errorf("fake: content %s: %w", id, domain.ErrNotFound)
	}
	return &driven.Download{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentType:   "text/plain",
		ContentLength: int64(len(body)),
	}, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSource) finds(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls[id]
}

func (s *fakeSource) lists(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls[id]
}

// fakeFactory hands out a single source and records the tokens used.
type fakeFactory struct {
	mu        stdsync.Mutex
	source    *fakeSource
	createErr error
	tokens    []string
}

func (f *fakeFactory) Create(_ context.Context, conn domain.Connection, token string) (driven.DocumentSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if token == "" {
		token = conn.AccessToken
	}
	f.tokens = append(f.tokens, token)
	return f.source, nil
}

func (f *fakeFactory) Register(_ string, _ driven.ConnectorBuilder) {}

func (f *fakeFactory) SupportedTypes() []string {
	return []string{domain.IntegrationBox}
}

// stubSyncService records the calls the worker makes.
type stubSyncService struct {
	mu       stdsync.Mutex
	runFn    func(job domain.Job, call int) error
	runs     int
	failures []error
}

func (s *stubSyncService) StartSync(context.Context, driving.StartSyncRequest) (*domain.Sync, error) {
	return nil, nil
}

func (s *stubSyncService) Run(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	s.runs++
	call, fn := s.runs, s.runFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(job, call)
}

func (s *stubSyncService) HandleFailure(_ context.Context, _ domain.Job, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, cause)
	return nil
}

func (s *stubSyncService) Teardown(context.Context, string) error { return nil }

func (s *stubSyncService) Resume(context.Context) (int, error) { return 0, nil }

func (s *stubSyncService) Progress(string) *driving.SyncProgress { return nil }

func (s *stubSyncService) counts() (int, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, append([]error(nil), s.failures...)
}

// stubDownloads records download jobs.
type stubDownloads struct {
	mu   stdsync.Mutex
	jobs []domain.Job
	err  error
}

func (s *stubDownloads) TriggerDownload(context.Context, string, string, string) error { return nil }

func (s *stubDownloads) Download(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return s.err
}

func (s *stubDownloads) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// --- Harness ---

const (
	testConnID = "conn-1"
	testUserID = "user-1"
)

type harness struct {
	connections *memstore.ConnectionStore
	syncs       *memstore.SyncStore
	docs        *memstore.DocumentStore
	ledger      *memstore.StepLedger
	queue       *memory.Queue
	source      *fakeSource
	factory     *fakeFactory
	controller  *SyncController
}

func testStepOptions() StepOptions {
	return StepOptions{Timeout: time.Second, Attempts: 3, Backoff: time.Millisecond}
}

func newHarness(t *testing.T, opts SyncOptions) *harness {
	t.Helper()

	h := &harness{
		connections: memstore.NewConnectionStore(),
		syncs:       memstore.NewSyncStore(),
		docs:        memstore.NewDocumentStore(),
		ledger:      memstore.NewStepLedger(),
		queue:       memory.New(),
		source:      newFakeSource(),
	}
	h.factory = &fakeFactory{source: h.source}
	t.Cleanup(func() { _ = h.queue.Close() })

	require.NoError(t, h.connections.Save(context.Background(), &domain.Connection{
		ID:              testConnID,
		UserID:          testUserID,
		IntegrationKey:  domain.IntegrationBox,
		IntegrationName: "Box",
		AccessToken:     "stored-token",
	}))

	steps := NewStepRunner(h.ledger, testStepOptions())
	h.controller = NewSyncController(h.connections, h.syncs, h.docs, h.factory, h.queue, steps, opts)
	return h
}

// start records a sync and returns the job StartSync queued.
func (h *harness) start(t *testing.T, roots ...string) domain.Job {
	t.Helper()
	s, err := h.controller.StartSync(context.Background(), driving.StartSyncRequest{
		ConnectionID: testConnID,
		UserID:       testUserID,
		DocumentIDs:  roots,
	})
	require.NoError(t, err)
	return domain.Job{
		Kind:         domain.JobSync,
		SyncID:       s.ID,
		ConnectionID: testConnID,
		UserID:       testUserID,
		DocumentIDs:  roots,
	}
}

func (h *harness) docIDs(t *testing.T) []string {
	t.Helper()
	docs, err := h.docs.ListByConnection(context.Background(), testConnID, "")
	require.NoError(t, err)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}

func noSettle() SyncOptions {
	return SyncOptions{MaxDocuments: 1000}
}
