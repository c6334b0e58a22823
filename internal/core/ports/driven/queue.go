package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// JobQueue transports background jobs with at-least-once delivery.
type JobQueue interface {
	// Publish enqueues a job.
	Publish(ctx context.Context, job domain.Job) error

	// Subscribe returns a channel of deliveries that closes when ctx ends.
	Subscribe(ctx context.Context) (<-chan Delivery, error)

	// Close releases resources.
	Close() error
}

// DurableQueue is implemented by queues whose unacknowledged jobs survive a
// restart and are redelivered without being published again.
type DurableQueue interface {
	Durable() bool
}

// Delivery is one delivery attempt of a job. Exactly one of Ack, Nak
// or Term must be called.
type Delivery interface {
	// Job returns the delivered job.
	Job() domain.Job

	// Attempt is 1 for the first delivery.
	Attempt() int

	// Ack marks the job done.
	Ack() error

	// Nak requests redelivery after delay.
	Nak(delay time.Duration) error

	// Term drops the job without redelivery.
	Term() error
}
