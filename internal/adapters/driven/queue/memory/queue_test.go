package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

func receive(t *testing.T, ch <-chan driven.Delivery) driven.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "channel closed")
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func TestQueue_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New()
	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)

	job := domain.Job{Kind: domain.JobSync, SyncID: "s1", DocumentIDs: []string{"a"}}
	require.NoError(t, q.Publish(ctx, job))

	d := receive(t, ch)
	assert.Equal(t, "s1", d.Job().SyncID)
	assert.Equal(t, 1, d.Attempt())
	require.NoError(t, d.Ack())
	assert.ErrorIs(t, d.Ack(), ErrAlreadySettled)
}

func TestQueue_PublishedBeforeSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New()
	require.NoError(t, q.Publish(ctx, domain.Job{Kind: domain.JobDownload, DocumentID: "d1"}))
	assert.Equal(t, 1, q.Len())

	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)
	d := receive(t, ch)
	assert.Equal(t, "d1", d.Job().DocumentID)
}

func TestQueue_NakRedelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New()
	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, domain.Job{Kind: domain.JobSync, SyncID: "s1"}))

	first := receive(t, ch)
	require.NoError(t, first.Nak(10*time.Millisecond))

	second := receive(t, ch)
	assert.Equal(t, 2, second.Attempt())
	require.NoError(t, second.Nak(0))

	third := receive(t, ch)
	assert.Equal(t, 3, third.Attempt())
	require.NoError(t, third.Term())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ClosedRejectsPublish(t *testing.T) {
	q := New()
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Publish(context.Background(), domain.Job{}), ErrClosed)
}

func TestQueue_SubscribeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := New()
	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestQueue_NotDurable(t *testing.T) {
	q := New()
	defer q.Close()

	var jq driven.JobQueue = q
	_, ok := jq.(driven.DurableQueue)
	assert.False(t, ok, "jobs are lost with the process")
}
