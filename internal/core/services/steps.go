package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// StepOptions bounds the execution of a single step.
type StepOptions struct {
	// Timeout applies to each attempt. Zero disables it.
	Timeout time.Duration

	// Attempts is the total number of tries for retriable failures.
	Attempts int

	// Backoff is the delay before the second attempt. It doubles afterwards.
	Backoff time.Duration
}

// DefaultStepOptions returns 60s per attempt, 3 attempts, 1s initial backoff.
func DefaultStepOptions() StepOptions {
	return StepOptions{
		Timeout:  60 * time.Second,
		Attempts: 3,
		Backoff:  time.Second,
	}
}

// StepRunner executes named job steps at most once per job.
// Completed outputs are kept in the ledger and replayed on re-entry.
type StepRunner struct {
	ledger driven.StepLedger
	opts   StepOptions
	now    func() time.Time
}

// NewStepRunner creates a step runner backed by ledger.
func NewStepRunner(ledger driven.StepLedger, opts StepOptions) *StepRunner {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	return &StepRunner{
		ledger: ledger,
		opts:   opts,
		now:    time.Now,
	}
}

// Forget purges every recorded step of a job.
func (r *StepRunner) Forget(ctx context.Context, jobID string) {
	if err := r.ledger.DeleteJob(ctx, jobID); err != nil {
		logger.Warn("steps: failed to purge ledger for %s: %v", jobID, err)
	}
}

// Step describes one named unit of work.
// Label names the work in timeout messages, e.g. "Fetching children for X".
type Step struct {
	JobID  string
	ID     string
	Label  string
	Inline bool
}

// runStep returns the recorded output of step if it already completed,
// otherwise runs fn with timeout and retries and records the output.
// Inline steps skip the timeout.
func runStep[T any](ctx context.Context, r *StepRunner, step Step, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	rec, err := r.ledger.Get(ctx, step.JobID, step.ID)
	switch {
	case err == nil:
		var out T
		if err := json.Unmarshal(rec.Output, &out); err != nil {
			return zero, fmt.Errorf("decode step %s: %w", step.ID, err)
		}
		logger.Debug("steps: replayed %s", step.ID)
		return out, nil
	case !errors.Is(err, domain.ErrNotFound):
		return zero, fmt.Errorf("read step %s: %w", step.ID, err)
	}

	var lastErr error
	for attempt := 1; attempt <= r.opts.Attempts; attempt++ {
		out, err := attemptStep(ctx, r.opts.Timeout, step, fn)
		if err == nil {
			r.record(ctx, step, out)
			return out, nil
		}
		lastErr = err

		if domain.IsNonRetriable(err) || ctx.Err() != nil {
			return zero, err
		}
		if attempt == r.opts.Attempts {
			break
		}

		delay := r.opts.Backoff << (attempt - 1)
		logger.Debug("steps: %s attempt %d/%d failed: %v (retry in %s)", step.ID, attempt, r.opts.Attempts, err, delay)
		if err := sleepCtx(ctx, delay); err != nil {
			return zero, err
		}
	}

	logger.Warn("steps: %s failed after %d attempts: %v", step.ID, r.opts.Attempts, lastErr)
	return zero, lastErr
}

type stepResult[T any] struct {
	out T
	err error
}

// attemptStep runs fn once. The step is abandoned when its deadline passes
// even if fn ignores cancellation.
func attemptStep[T any](ctx context.Context, timeout time.Duration, step Step, fn func(ctx context.Context) (T, error)) (T, error) {
	if step.Inline || timeout <= 0 {
		return fn(ctx)
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan stepResult[T], 1)
	go func() {
		out, err := fn(stepCtx)
		done <- stepResult[T]{out: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return res.out, timeoutError(step.Label, timeout)
		}
		return res.out, res.err
	case <-stepCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, timeoutError(step.Label, timeout)
	}
}

func (r *StepRunner) record(ctx context.Context, step Step, out any) {
	data, err := json.Marshal(out)
	if err != nil {
		logger.Warn("steps: cannot encode output of %s: %v", step.ID, err)
		return
	}
	rec := domain.StepRecord{
		JobID:       step.JobID,
		StepID:      step.ID,
		Output:      data,
		CompletedAt: r.now(),
	}
	if err := r.ledger.Record(ctx, rec); err != nil {
		logger.Warn("steps: failed to record %s: %v", step.ID, err)
	}
}

// sleepCtx waits for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// timeoutError builds the retriable failure for a step that ran too long.
func timeoutError(label string, d time.Duration) error {
	if label == "" {
		label = "Step"
	}
	bound := fmt.Sprintf("%d seconds", int(d/time.Second))
	if d%time.Second != 0 {
		bound = d.String()
	}
	return fmt.Errorf("%w: %s timed out after %s, please try again", domain.ErrStepTimeout, label, bound)
}
