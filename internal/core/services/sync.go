package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Ensure SyncController implements the interface.
var _ driving.SyncService = (*SyncController)(nil)

// SyncOptions bounds a sync run.
type SyncOptions struct {
	// MaxDocuments caps the documents persisted by one run.
	MaxDocuments int

	// SettleDelay is waited before the completion write so pollers see
	// the final in-progress count.
	SettleDelay time.Duration
}

// DefaultSyncOptions returns a 1000 document cap and a 2s settle delay.
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		MaxDocuments: 1000,
		SettleDelay:  2 * time.Second,
	}
}

// SyncController runs the document synchronisation job for a connection.
type SyncController struct {
	connections driven.ConnectionStore
	syncs       driven.SyncStore
	docs        driven.DocumentStore
	factory     driven.ConnectorFactory
	queue       driven.JobQueue
	steps       *StepRunner
	writer      *DocumentWriter
	opts        SyncOptions

	now   func() time.Time
	newID func() string

	// Status tracking
	mu          sync.RWMutex
	activeSyncs map[string]*driving.SyncProgress
}

// NewSyncController creates a sync controller.
func NewSyncController(
	connections driven.ConnectionStore,
	syncs driven.SyncStore,
	docs driven.DocumentStore,
	factory driven.ConnectorFactory,
	queue driven.JobQueue,
	steps *StepRunner,
	opts SyncOptions,
) *SyncController {
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = DefaultSyncOptions().MaxDocuments
	}
	return &SyncController{
		connections: connections,
		syncs:       syncs,
		docs:        docs,
		factory:     factory,
		queue:       queue,
		steps:       steps,
		writer:      NewDocumentWriter(docs),
		opts:        opts,
		now:         time.Now,
		newID:       uuid.NewString,
		activeSyncs: make(map[string]*driving.SyncProgress),
	}
}

// StartSync records a new in-progress sync and enqueues its job.
func (c *SyncController) StartSync(ctx context.Context, req driving.StartSyncRequest) (*domain.Sync, error) {
	if len(req.DocumentIDs) == 0 {
		return nil, domain.NonRetriable(domain.ErrNoDocumentIDs)
	}
	if req.ConnectionID == "" {
		return nil, domain.NonRetriablef("%w: connection id is required", domain.ErrInvalidInput)
	}

	conn, err := c.connections.Get(ctx, req.ConnectionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NonRetriable(fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, req.ConnectionID))
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	// A foreign connection is reported as missing.
	if req.UserID != "" && conn.UserID != req.UserID {
		return nil, domain.NonRetriable(fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, req.ConnectionID))
	}

	meta := req.Integration
	if meta.Name == "" {
		meta.Name = conn.IntegrationName
	}
	if meta.Logo == "" {
		meta.Logo = conn.IntegrationLogo
	}
	if meta.ID == "" {
		meta.ID = conn.IntegrationKey
	}

	userID := req.UserID
	if userID == "" {
		userID = conn.UserID
	}

	s := domain.NewSync(c.newID(), conn.ID, userID, meta, req.DocumentIDs, c.now())
	if err := c.syncs.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create sync: %w", err)
	}

	job := domain.Job{
		Kind:         domain.JobSync,
		SyncID:       s.ID,
		ConnectionID: conn.ID,
		UserID:       userID,
		Token:        req.Token,
		DocumentIDs:  req.DocumentIDs,
	}
	if err := c.queue.Publish(ctx, job); err != nil {
		s.MarkFailed(c.now(), "Failed to start sync")
		if uerr := c.syncs.Update(ctx, s); uerr != nil {
			logger.Error("sync %s: failed to record enqueue failure: %v", s.ID, uerr)
		}
		return nil, fmt.Errorf("enqueue sync: %w", err)
	}

	logger.Info("Queued sync %s for connection %s (%d roots)", s.ID, conn.ID, len(req.DocumentIDs))
	return s, nil
}

// Run executes a sync job. Steps recorded by an earlier attempt of the same
// job are replayed from the ledger.
func (c *SyncController) Run(ctx context.Context, job domain.Job) error {
	if len(job.DocumentIDs) == 0 {
		return domain.NonRetriable(domain.ErrNoDocumentIDs)
	}

	s, err := c.loadSync(ctx, job.SyncID)
	if err != nil {
		return err
	}
	if s.IsTerminal() {
		logger.Debug("sync %s already %s, skipping", s.ID, s.Status)
		return nil
	}

	conn, err := c.loadConnection(ctx, job.ConnectionID)
	if err != nil {
		return err
	}

	source, err := c.factory.Create(ctx, *conn, job.Token)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			return domain.NonRetriable(err)
		}
		return fmt.Errorf("create connector: %w", err)
	}
	defer source.Close()

	run := &syncRun{
		ctl:    c,
		job:    job,
		jobID:  job.ID(),
		source: source,
		seen:   make(map[string]struct{}),
	}

	c.setProgress(job.ConnectionID, &driving.SyncProgress{
		ConnectionID: job.ConnectionID,
		SyncID:       job.SyncID,
		Running:      true,
	})
	defer c.clearProgress(job.ConnectionID)

	logger.Section("Sync " + job.SyncID)
	logger.Info("Starting sync %s for connection %s", job.SyncID, job.ConnectionID)

	walker := NewTreeWalker(run)
	for _, rootID := range job.DocumentIDs {
		if run.truncated {
			break
		}
		if err := c.checkAlive(ctx, job); err != nil {
			return err
		}

		run.root = rootID
		c.updateProgress(job.ConnectionID, func(p *driving.SyncProgress) { p.CurrentRoot = rootID })
		if err := walker.Walk(ctx, rootID, run.visit); err != nil {
			return err
		}
	}

	if err := c.checkAlive(ctx, job); err != nil {
		return err
	}
	if err := c.finalize(ctx, run); err != nil {
		return err
	}

	c.steps.Forget(ctx, run.jobID)
	logger.Info("Completed sync %s: %d documents (truncated=%t)", job.SyncID, len(run.synced), run.truncated)
	return nil
}

// finalize waits the settle delay then marks the sync completed.
func (c *SyncController) finalize(ctx context.Context, run *syncRun) error {
	step := Step{JobID: run.jobID, ID: "complete-sync", Inline: true}
	_, err := runStep(ctx, c.steps, step, func(ctx context.Context) (string, error) {
		if err := sleepCtx(ctx, c.opts.SettleDelay); err != nil {
			return "", err
		}

		s, err := c.loadSync(ctx, run.job.SyncID)
		if err != nil {
			return "", err
		}
		if s.IsTerminal() {
			return string(s.Status), nil
		}

		s.MarkCompleted(c.now(), run.syncedIDs(), run.truncated)
		if err := c.syncs.Update(ctx, s); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return "", domain.SyncMissingError(s.ID)
			}
			return "", fmt.Errorf("update sync: %w", err)
		}
		return string(s.Status), nil
	})
	return err
}

// HandleFailure records the terminal failure of a job. When the sync
// record is gone the documents written for the connection are removed.
// Calling it again for the same job has no further effect.
func (c *SyncController) HandleFailure(ctx context.Context, job domain.Job, cause error) error {
	defer c.steps.Forget(ctx, job.ID())

	s, err := c.syncs.Get(ctx, job.SyncID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get sync: %w", err)
		}
		logger.Warn("sync %s no longer exists, removing documents of connection %s", job.SyncID, job.ConnectionID)
		if err := c.docs.DeleteByConnection(ctx, job.ConnectionID); err != nil {
			return fmt.Errorf("rollback documents: %w", err)
		}
		return nil
	}

	if s.IsTerminal() {
		return nil
	}

	msg := domain.ErrorMessage(cause)
	s.MarkFailed(c.now(), msg)
	if err := c.syncs.Update(ctx, s); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.docs.DeleteByConnection(ctx, job.ConnectionID)
		}
		return fmt.Errorf("update sync: %w", err)
	}

	logger.Error("Sync %s failed: %s", s.ID, msg)
	return nil
}

// Teardown deletes every sync and document of a connection.
func (c *SyncController) Teardown(ctx context.Context, connectionID string) error {
	if err := c.syncs.DeleteByConnection(ctx, connectionID); err != nil {
		return fmt.Errorf("delete syncs: %w", err)
	}
	if err := c.docs.DeleteByConnection(ctx, connectionID); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	logger.Info("Removed sync data for connection %s", connectionID)
	return nil
}

// Resume re-enqueues syncs left in progress by a previous process.
// The original job token is not persisted, so resumed jobs use the
// connection's stored access token. A durable queue still holds those
// jobs, and publishing them again would run a sync twice, so nothing is
// enqueued.
func (c *SyncController) Resume(ctx context.Context) (int, error) {
	if dq, ok := c.queue.(driven.DurableQueue); ok && dq.Durable() {
		logger.Debug("Job queue is durable, interrupted syncs are redelivered")
		return 0, nil
	}

	pending, err := c.syncs.ListInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("list in-progress syncs: %w", err)
	}

	resumed := 0
	for i := range pending {
		s := &pending[i]
		job := domain.Job{
			Kind:         domain.JobSync,
			SyncID:       s.ID,
			ConnectionID: s.ConnectionID,
			UserID:       s.UserID,
			DocumentIDs:  s.DocumentIDs,
		}
		if err := c.queue.Publish(ctx, job); err != nil {
			return resumed, fmt.Errorf("enqueue sync %s: %w", s.ID, err)
		}
		resumed++
	}
	if resumed > 0 {
		logger.Info("Resumed %d interrupted syncs", resumed)
	}
	return resumed, nil
}

// Progress returns live progress for a connection, or nil when idle.
func (c *SyncController) Progress(connectionID string) *driving.SyncProgress {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.activeSyncs[connectionID]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// checkAlive detects a connection archived or a sync deleted mid-run.
func (c *SyncController) checkAlive(ctx context.Context, job domain.Job) error {
	if _, err := c.loadConnection(ctx, job.ConnectionID); err != nil {
		return err
	}
	_, err := c.loadSync(ctx, job.SyncID)
	return err
}

func (c *SyncController) loadConnection(ctx context.Context, id string) (*domain.Connection, error) {
	conn, err := c.connections.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ConnectionArchivedError(id)
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return conn, nil
}

func (c *SyncController) loadSync(ctx context.Context, id string) (*domain.Sync, error) {
	s, err := c.syncs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.SyncMissingError(id)
		}
		return nil, fmt.Errorf("get sync: %w", err)
	}
	return s, nil
}

// setProgress records live progress for a connection.
func (c *SyncController) setProgress(connectionID string, p *driving.SyncProgress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeSyncs[connectionID] = p
}

func (c *SyncController) updateProgress(connectionID string, fn func(p *driving.SyncProgress)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.activeSyncs[connectionID]; ok {
		fn(p)
	}
}

// clearProgress removes progress for a connection.
func (c *SyncController) clearProgress(connectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeSyncs, connectionID)
}

// syncRun is the state of one execution of a sync job.
// It is also the walker's PageFetcher so every fetch is a durable step.
type syncRun struct {
	ctl    *SyncController
	job    domain.Job
	jobID  string
	source driven.DocumentSource
	root   string

	synced    []string
	seen      map[string]struct{}
	batches   int
	truncated bool
}

var _ PageFetcher = (*syncRun)(nil)

// FetchRoot resolves a root document as step fetch-root-document-<id>.
func (r *syncRun) FetchRoot(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	step := Step{
		JobID: r.jobID,
		ID:    "fetch-root-document-" + id,
		Label: "Fetching root document " + id,
	}
	return runStep(ctx, r.ctl.steps, step, func(ctx context.Context) (*domain.DocumentRecord, error) {
		rec, err := r.source.FindByID(ctx, id)
		return rec, r.classify(err)
	})
}

// FetchChildren lists a page as step fetch-children-<parent>-<cursor|initial>.
func (r *syncRun) FetchChildren(ctx context.Context, parentID, cursor string) (*domain.DocumentPage, error) {
	key := cursor
	if key == "" {
		key = "initial"
	}
	step := Step{
		JobID: r.jobID,
		ID:    "fetch-children-" + parentID + "-" + key,
		Label: "Fetching children for " + parentID,
	}
	return runStep(ctx, r.ctl.steps, step, func(ctx context.Context) (*domain.DocumentPage, error) {
		page, err := r.source.ListChildren(ctx, parentID, cursor)
		return page, r.classify(err)
	})
}

// classify marks provider failures that retrying cannot fix.
func (r *syncRun) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrConnectionNotFound):
		return domain.ConnectionArchivedError(r.job.ConnectionID)
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrAuthInvalid),
		errors.Is(err, domain.ErrUnsupportedType):
		return domain.NonRetriable(err)
	default:
		return err
	}
}

// visit persists a page, trimmed so the run never exceeds the cap.
func (r *syncRun) visit(ctx context.Context, records []domain.DocumentRecord) error {
	remaining := r.ctl.opts.MaxDocuments - len(r.synced)

	batch := make([]domain.DocumentRecord, 0, len(records))
	for _, rec := range records {
		if len(batch) == remaining {
			break
		}
		if _, ok := r.seen[rec.ID]; ok {
			continue
		}
		batch = append(batch, rec)
	}

	if len(batch) > 0 {
		r.batches++
		step := Step{JobID: r.jobID, ID: "save-documents-" + strconv.Itoa(r.batches), Inline: true}
		_, err := runStep(ctx, r.ctl.steps, step, func(ctx context.Context) (int, error) {
			return r.ctl.writer.UpsertBatch(ctx, batch, r.job.ConnectionID, r.job.UserID)
		})
		if err != nil {
			return err
		}
		for _, rec := range batch {
			r.seen[rec.ID] = struct{}{}
			r.synced = append(r.synced, rec.ID)
		}
		count := len(r.synced)
		r.ctl.updateProgress(r.job.ConnectionID, func(p *driving.SyncProgress) { p.DocumentsSynced = count })
		logger.Debug("sync %s: saved %d documents under %s (total %d)", r.job.SyncID, len(batch), r.root, count)
	}

	if len(r.synced) >= r.ctl.opts.MaxDocuments {
		logger.Warn("Reached max documents limit (%d) for sync %s", r.ctl.opts.MaxDocuments, r.job.SyncID)
		r.truncated = true
		return domain.ErrStopWalk
	}
	return nil
}

func (r *syncRun) syncedIDs() []string {
	out := make([]string, len(r.synced))
	copy(out, r.synced)
	return out
}
