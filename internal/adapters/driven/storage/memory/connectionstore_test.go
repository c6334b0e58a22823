package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

func TestConnectionStore(t *testing.T) {
	ctx := context.Background()
	store := NewConnectionStore()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	now := time.Now()
	require.NoError(t, store.Save(ctx, &domain.Connection{ID: "c2", UserID: "u1", IntegrationKey: "box", CreatedAt: now.Add(time.Second)}))
	require.NoError(t, store.Save(ctx, &domain.Connection{ID: "c1", UserID: "u1", IntegrationKey: "sharepoint", CreatedAt: now}))
	require.NoError(t, store.Save(ctx, &domain.Connection{ID: "c3", UserID: "u2", IntegrationKey: "box", CreatedAt: now}))

	conns, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, "c1", conns[0].ID)
	assert.Equal(t, "c2", conns[1].ID)

	require.NoError(t, store.Delete(ctx, "c1"))
	_, err = store.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
