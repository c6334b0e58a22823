package driving

import "context"

// Worker consumes background jobs from the queue.
type Worker interface {
	// Start begins consuming jobs.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops consumption and waits for in-flight jobs.
	Stop() error
}
