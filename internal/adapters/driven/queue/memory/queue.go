// Package memory provides an in-process job queue with redelivery.
// Jobs are lost when the process exits.
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.JobQueue = (*Queue)(nil)

// ErrClosed is returned when publishing to a closed queue.
var ErrClosed = errors.New("queue closed")

// ErrAlreadySettled is returned when a delivery is settled twice.
var ErrAlreadySettled = errors.New("delivery already settled")

type entry struct {
	job     domain.Job
	attempt int
}

// Queue is an in-memory implementation of driven.JobQueue.
type Queue struct {
	mu      sync.Mutex
	pending []entry
	notify  chan struct{}
	closed  bool
	timers  map[*time.Timer]struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
		timers: make(map[*time.Timer]struct{}),
	}
}

// Publish enqueues a job for its first delivery.
func (q *Queue) Publish(ctx context.Context, job domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.push(entry{job: copyJob(job), attempt: 1})
}

// Subscribe returns deliveries until ctx ends.
func (q *Queue) Subscribe(ctx context.Context) (<-chan driven.Delivery, error) {
	out := make(chan driven.Delivery)
	go func() {
		defer close(out)
		for {
			e, ok := q.pop()
			if !ok {
				select {
				case <-ctx.Done():
					return
				case <-q.notify:
					continue
				}
			}

			d := &delivery{queue: q, entry: e}
			select {
			case out <- d:
			case <-ctx.Done():
				q.requeue(e)
				return
			}
		}
	}()
	return out, nil
}

// Close stops pending redeliveries and rejects new jobs.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for t := range q.timers {
		t.Stop()
	}
	q.timers = make(map[*time.Timer]struct{})
	return nil
}

// Len returns the number of jobs waiting for delivery.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) push(e entry) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, e)
	q.mu.Unlock()
	q.wake()
	return nil
}

// requeue puts an undelivered entry back at the head of the queue.
func (q *Queue) requeue(e entry) {
	q.mu.Lock()
	q.pending = append([]entry{e}, q.pending...)
	q.mu.Unlock()
	q.wake()
}

func (q *Queue) pop() (entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return entry{}, false
	}
	e := q.pending[0]
	q.pending = q.pending[1:]
	return e, true
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) redeliverAfter(e entry, delay time.Duration) {
	e.attempt++
	if delay <= 0 {
		_ = q.push(e)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, t)
		q.mu.Unlock()
		_ = q.push(e)
	})
	q.timers[t] = struct{}{}
}

func copyJob(job domain.Job) domain.Job {
	job.DocumentIDs = append([]string(nil), job.DocumentIDs...)
	return job
}

type delivery struct {
	queue   *Queue
	entry   entry
	settled atomic.Bool
}

func (d *delivery) Job() domain.Job { return copyJob(d.entry.job) }

func (d *delivery) Attempt() int { return d.entry.attempt }

func (d *delivery) Ack() error { return d.settle() }

func (d *delivery) Term() error { return d.settle() }

func (d *delivery) Nak(delay time.Duration) error {
	if err := d.settle(); err != nil {
		return err
	}
	d.queue.redeliverAfter(d.entry, delay)
	return nil
}

func (d *delivery) settle() error {
	if !d.settled.CompareAndSwap(false, true) {
		return ErrAlreadySettled
	}
	return nil
}
