package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// StepLedger stores the outcome of completed job steps so a retried job
// replays them instead of re-executing.
type StepLedger interface {
	// Get returns the recorded step. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, jobID, stepID string) (*domain.StepRecord, error)

	// Record stores a completed step. Recording an existing step is a no-op.
	Record(ctx context.Context, rec domain.StepRecord) error

	// DeleteJob purges every step of a job.
	DeleteJob(ctx context.Context, jobID string) error
}
