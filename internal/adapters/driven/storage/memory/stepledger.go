package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure StepLedger implements the interface.
var _ driven.StepLedger = (*StepLedger)(nil)

// StepLedger is an in-memory implementation of driven.StepLedger.
type StepLedger struct {
	mu    sync.RWMutex
	steps map[string]map[string]domain.StepRecord
}

// NewStepLedger creates a new in-memory step ledger.
func NewStepLedger() *StepLedger {
	return &StepLedger{
		steps: make(map[string]map[string]domain.StepRecord),
	}
}

// Get returns a recorded step.
func (l *StepLedger) Get(_ context.Context, jobID, stepID string) (*domain.StepRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.steps[jobID][stepID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Record stores a completed step unless it is already recorded.
func (l *StepLedger) Record(_ context.Context, rec domain.StepRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	job, ok := l.steps[rec.JobID]
	if !ok {
		job = make(map[string]domain.StepRecord)
		l.steps[rec.JobID] = job
	}
	if _, ok := job[rec.StepID]; ok {
		return nil
	}
	rec.Output = append([]byte(nil), rec.Output...)
	job[rec.StepID] = rec
	return nil
}

// DeleteJob purges every step of a job.
func (l *StepLedger) DeleteJob(_ context.Context, jobID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.steps, jobID)
	return nil
}

// Len returns the number of steps recorded for a job.
func (l *StepLedger) Len(jobID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.steps[jobID])
}
