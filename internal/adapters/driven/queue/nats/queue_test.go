package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

var testOpts = Options{Stream: "JOBS", Subject: "sercha.jobs", Durable: "w"}

func newTestQueue(t *testing.T) (*Queue, *MockJetStream) {
	t.Helper()
	js := new(MockJetStream)
	js.On("CreateOrUpdateStream", mock.Anything, mock.MatchedBy(func(cfg jetstream.StreamConfig) bool {
		return cfg.Name == "JOBS" && cfg.Subjects[0] == "sercha.jobs.>" && cfg.Storage == jetstream.FileStorage
	})).Return(nil, nil)

	q, err := New(context.Background(), js, testOpts)
	require.NoError(t, err)
	return q, js
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), nil, testOpts)
	assert.Error(t, err)

	_, err = New(context.Background(), new(MockJetStream), Options{})
	assert.Error(t, err)
}

func TestNew_StreamError(t *testing.T) {
	js := new(MockJetStream)
	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	_, err := New(context.Background(), js, testOpts)
	assert.ErrorContains(t, err, "failed to ensure stream")
}

func TestQueue_IsDurable(t *testing.T) {
	q, _ := newTestQueue(t)

	var jq driven.JobQueue = q
	dq, ok := jq.(driven.DurableQueue)
	require.True(t, ok)
	assert.True(t, dq.Durable())
}

func TestQueue_Publish(t *testing.T) {
	q, js := newTestQueue(t)
	job := domain.Job{Kind: domain.JobSync, SyncID: "s1", ConnectionID: "c1", DocumentIDs: []string{"a"}}

	js.On("Publish", mock.Anything, "sercha.jobs.sync", mock.MatchedBy(func(data []byte) bool {
		var got domain.Job
		return json.Unmarshal(data, &got) == nil && got.SyncID == "s1" && got.DocumentIDs[0] == "a"
	}), 1).Return(&jetstream.PubAck{}, nil)

	require.NoError(t, q.Publish(context.Background(), job))
	js.AssertExpectations(t)
}

func TestQueue_PublishDownloadWithoutDedup(t *testing.T) {
	q, js := newTestQueue(t)
	js.On("Publish", mock.Anything, "sercha.jobs.download", mock.Anything, 0).Return(nil, errors.New("no responders"))

	err := q.Publish(context.Background(), domain.Job{Kind: domain.JobDownload, ConnectionID: "c1", DocumentID: "d"})
	assert.ErrorContains(t, err, "sercha.jobs.download")
}

func TestQueue_Subscribe(t *testing.T) {
	q, js := newTestQueue(t)
	consumer := NewMockConsumer()
	cc := new(MockConsumeContext)
	cc.On("Stop").Return()

	js.On("CreateOrUpdateConsumer", mock.Anything, "JOBS", mock.MatchedBy(func(cfg jetstream.ConsumerConfig) bool {
		return cfg.Durable == "w" && cfg.AckPolicy == jetstream.AckExplicitPolicy && cfg.AckWait == DefaultAckWait
	})).Return(consumer, nil)
	consumer.On("Consume", mock.Anything).Return(cc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)

	var handler jetstream.MessageHandler
	select {
	case handler = <-consumer.handlerCh:
	case <-time.After(time.Second):
		t.Fatal("consumer not started")
	}

	data, _ := json.Marshal(domain.Job{Kind: domain.JobSync, SyncID: "s1"})
	msg := NewMockMsg("sercha.jobs.sync", data)
	msg.On("Metadata").Return(&jetstream.MsgMetadata{NumDelivered: 3}, nil)
	msg.On("NakWithDelay", 2*time.Second).Return(nil)
	handler(msg)

	d := <-ch
	assert.Equal(t, "s1", d.Job().SyncID)
	assert.Equal(t, 3, d.Attempt())
	require.NoError(t, d.Nak(2*time.Second))

	bad := NewMockMsg("sercha.jobs.sync", []byte("{"))
	bad.On("Term").Return(nil)
	handler(bad)
	bad.AssertCalled(t, "Term")

	cancel()
	for range ch {
	}
	cc.AssertCalled(t, "Stop")
	msg.AssertExpectations(t)
}

func TestDelivery_AttemptDefaultsToOne(t *testing.T) {
	data, _ := json.Marshal(domain.Job{Kind: domain.JobDownload})
	msg := NewMockMsg("s", data)
	msg.On("Metadata").Return(nil, errors.New("not a jetstream message"))
	msg.On("Nak").Return(nil)
	msg.On("Ack").Return(nil)

	d, err := wrap(msg)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Attempt())
	require.NoError(t, d.Nak(0))
	require.NoError(t, d.Ack())
	msg.AssertExpectations(t)
}
