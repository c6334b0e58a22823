// Package nats implements the job queue on NATS JetStream.
//
// Jobs are JSON encoded and published to <subject>.<kind>. A durable pull
// consumer with explicit acks delivers them; the redelivery count reported
// by JetStream is the delivery attempt.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Ensure Queue implements the interfaces.
var (
	_ driven.JobQueue     = (*Queue)(nil)
	_ driven.DurableQueue = (*Queue)(nil)
)

// DefaultAckWait bounds how long a delivered job may run before JetStream
// redelivers it.
const DefaultAckWait = 30 * time.Minute

// JetStream is the subset of jetstream.JetStream the queue uses.
type JetStream interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	CreateOrUpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Options configures the queue.
type Options struct {
	Stream  string
	Subject string
	Durable string
	AckWait time.Duration
	Buffer  int
}

// Queue is a JetStream backed driven.JobQueue.
type Queue struct {
	js   JetStream
	nc   *nats.Conn
	opts Options
}

// Connect dials url and returns a queue that owns the connection.
func Connect(ctx context.Context, url string, opts Options) (*Queue, error) {
	nc, err := nats.Connect(url, nats.Name("sercha-sync"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}
	q, err := New(ctx, js, opts)
	if err != nil {
		nc.Close()
		return nil, err
	}
	q.nc = nc
	return q, nil
}

// New creates a queue on js and ensures the stream exists.
func New(ctx context.Context, js JetStream, opts Options) (*Queue, error) {
	if js == nil {
		return nil, errors.New("jetstream cannot be nil")
	}
	if opts.Stream == "" || opts.Subject == "" {
		return nil, errors.New("stream and subject are required")
	}
	if opts.Durable == "" {
		opts.Durable = "worker"
	}
	if opts.AckWait <= 0 {
		opts.AckWait = DefaultAckWait
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}

	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      opts.Stream,
		Subjects:  []string{opts.Subject + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	return &Queue{js: js, opts: opts}, nil
}

// Durable reports true: the stream is file backed and unacknowledged jobs
// are redelivered after a restart.
func (q *Queue) Durable() bool { return true }

// Publish encodes and publishes a job.
func (q *Queue) Publish(ctx context.Context, job domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	subject := q.opts.Subject + "." + string(job.Kind)

	// Sync jobs are unique per sync, so a republished one is a duplicate.
	var opts []jetstream.PublishOpt
	if job.Kind == domain.JobSync {
		opts = append(opts, jetstream.WithMsgID(job.ID()))
	}
	if _, err := q.js.Publish(ctx, subject, data, opts...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe starts the durable consumer and returns its deliveries.
// The channel closes when ctx ends.
func (q *Queue) Subscribe(ctx context.Context) (<-chan driven.Delivery, error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, q.opts.Stream, jetstream.ConsumerConfig{
		Durable:       q.opts.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       q.opts.AckWait,
		FilterSubject: q.opts.Subject + ".>",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	out := make(chan driven.Delivery, q.opts.Buffer)

	// Track if we're closing to avoid sending to closed channel
	var closing atomic.Bool

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if closing.Load() {
			_ = msg.Nak()
			return
		}
		d, err := wrap(msg)
		if err != nil {
			logger.Error("queue: dropping undecodable message on %s: %v", msg.Subject(), err)
			_ = msg.Term()
			return
		}
		select {
		case out <- d:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		close(out)
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	logger.Debug("queue: consumer %s subscribed to stream %s", q.opts.Durable, q.opts.Stream)

	go func() {
		<-ctx.Done()
		closing.Store(true)
		cc.Stop()
		close(out)
		logger.Debug("queue: consumer %s stopped", q.opts.Durable)
	}()

	return out, nil
}

// Close closes the owned connection.
func (q *Queue) Close() error {
	if q.nc != nil {
		q.nc.Close()
	}
	return nil
}

type delivery struct {
	msg     jetstream.Msg
	job     domain.Job
	attempt int
}

func wrap(msg jetstream.Msg) (*delivery, error) {
	var job domain.Job
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		return nil, err
	}
	attempt := 1
	if md, err := msg.Metadata(); err == nil && md.NumDelivered > 0 {
		attempt = int(md.NumDelivered)
	}
	return &delivery{msg: msg, job: job, attempt: attempt}, nil
}

func (d *delivery) Job() domain.Job { return d.job }

func (d *delivery) Attempt() int { return d.attempt }

func (d *delivery) Ack() error { return d.msg.Ack() }

func (d *delivery) Term() error { return d.msg.Term() }

func (d *delivery) Nak(delay time.Duration) error {
	if delay <= 0 {
		return d.msg.Nak()
	}
	return d.msg.NakWithDelay(delay)
}
