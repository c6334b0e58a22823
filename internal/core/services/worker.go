package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Ensure JobWorker implements the interface.
var _ driving.Worker = (*JobWorker)(nil)

// WorkerOptions configures job consumption.
type WorkerOptions struct {
	// Concurrency bounds the jobs handled at once.
	Concurrency int

	// MaxDeliveries is the total attempts of a job before it fails.
	MaxDeliveries int

	// RetryBackoff is the redelivery delay after the first failure.
	// It doubles for each further attempt.
	RetryBackoff time.Duration
}

// DefaultWorkerOptions returns 4 concurrent jobs, 4 deliveries and 1s backoff.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Concurrency:   4,
		MaxDeliveries: 4,
		RetryBackoff:  time.Second,
	}
}

// JobWorker dispatches queued jobs to the sync controller and the
// download trigger. Download jobs never wait behind a running sync
// while a slot is free.
type JobWorker struct {
	queue     driven.JobQueue
	syncs     driving.SyncService
	downloads driving.DownloadTrigger
	opts      WorkerOptions

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	cancelSub context.CancelFunc
	wg        sync.WaitGroup
}

// NewJobWorker creates a worker.
func NewJobWorker(
	queue driven.JobQueue,
	syncs driving.SyncService,
	downloads driving.DownloadTrigger,
	opts WorkerOptions,
) *JobWorker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxDeliveries < 1 {
		opts.MaxDeliveries = 1
	}
	return &JobWorker{
		queue:     queue,
		syncs:     syncs,
		downloads: downloads,
		opts:      opts,
	}
}

// Start begins the worker loop. This method blocks until Stop is called
// or ctx is cancelled.
func (w *JobWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil // Already running
	}
	subCtx, cancel := context.WithCancel(ctx)
	deliveries, err := w.queue.Subscribe(subCtx)
	if err != nil {
		w.mu.Unlock()
		cancel()
		return err
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.cancelSub = cancel
	stopCh := w.stopCh
	w.mu.Unlock()

	return w.run(ctx, deliveries, stopCh)
}

// Stop gracefully shuts down the worker and waits for in-flight jobs.
func (w *JobWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.cancelSub()
	w.mu.Unlock()

	// Wait for running jobs to complete
	w.wg.Wait()

	return nil
}

// run is the main worker loop.
func (w *JobWorker) run(ctx context.Context, deliveries <-chan driven.Delivery, stopCh <-chan struct{}) error {
	slots := make(chan struct{}, w.opts.Concurrency)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				w.wg.Wait()
				return nil
			}

			select {
			case slots <- struct{}{}:
			case <-stopCh:
				_ = d.Nak(0)
				return nil
			case <-ctx.Done():
				_ = d.Nak(0)
				w.wg.Wait()
				return ctx.Err()
			}

			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				defer func() { <-slots }()
				w.handle(ctx, d)
			}()
		}
	}
}

// handle runs one delivery and settles it.
func (w *JobWorker) handle(ctx context.Context, d driven.Delivery) {
	job := d.Job()

	err := w.dispatch(ctx, job)
	if err == nil {
		if ackErr := d.Ack(); ackErr != nil {
			logger.Warn("worker: ack %s: %v", job.ID(), ackErr)
		}
		return
	}

	if ctx.Err() != nil {
		// Shutting down; leave the job for the next process.
		_ = d.Nak(0)
		return
	}

	attempt := max(d.Attempt(), 1)
	if !domain.IsNonRetriable(err) && attempt < w.opts.MaxDeliveries {
		delay := w.opts.RetryBackoff << (attempt - 1)
		logger.Warn("worker: %s attempt %d/%d failed: %v (retry in %s)",
			job.ID(), attempt, w.opts.MaxDeliveries, err, delay)
		if nakErr := d.Nak(delay); nakErr != nil {
			logger.Warn("worker: nak %s: %v", job.ID(), nakErr)
		}
		return
	}

	w.fail(ctx, job, err)
	if termErr := d.Term(); termErr != nil {
		logger.Warn("worker: term %s: %v", job.ID(), termErr)
	}
}

func (w *JobWorker) dispatch(ctx context.Context, job domain.Job) error {
	switch job.Kind {
	case domain.JobSync:
		return w.syncs.Run(ctx, job)
	case domain.JobDownload:
		return w.downloads.Download(ctx, job)
	default:
		return domain.NonRetriablef("%w: unknown job kind %q", domain.ErrUnsupportedType, job.Kind)
	}
}

// fail runs the failure handler of a job that will not be retried.
func (w *JobWorker) fail(ctx context.Context, job domain.Job, cause error) {
	switch job.Kind {
	case domain.JobSync:
		if err := w.syncs.HandleFailure(ctx, job, cause); err != nil {
			logger.Error("worker: failure handler for %s: %v", job.ID(), err)
		}
	default:
		logger.Error("worker: dropping %s: %v", job.ID(), cause)
	}
}
