package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func TestDocumentStore_UpsertBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts new documents", func(t *testing.T) {
		store := NewDocumentStore()
		err := store.UpsertBatch(ctx, []domain.Document{
			{ID: "a", ConnectionID: "c1", UserID: "u1", Title: "A"},
			{ID: "b", ConnectionID: "c1", UserID: "u1", Title: "B"},
		})
		require.NoError(t, err)

		docs, err := store.ListByConnection(ctx, "c1", "u1")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "a", docs[0].ID)
		assert.Nil(t, docs[0].Content)
	})

	t.Run("same id in different connections are distinct", func(t *testing.T) {
		store := NewDocumentStore()
		require.NoError(t, store.UpsertBatch(ctx, []domain.Document{
			{ID: "a", ConnectionID: "c1", Title: "one"},
			{ID: "a", ConnectionID: "c2", Title: "two"},
		}))

		one, err := store.Get(ctx, "c1", "a")
		require.NoError(t, err)
		two, err := store.Get(ctx, "c2", "a")
		require.NoError(t, err)
		assert.Equal(t, "one", one.Title)
		assert.Equal(t, "two", two.Title)
	})

	t.Run("replaces metadata and keeps content and download fields", func(t *testing.T) {
		store := NewDocumentStore()
		require.NoError(t, store.UpsertBatch(ctx, []domain.Document{{ID: "a", ConnectionID: "c1", Title: "old"}}))
		require.NoError(t, store.SetDownloadState(ctx, "c1", "a", domain.DownloadDone, strPtr("key"), nil))

		require.NoError(t, store.UpsertBatch(ctx, []domain.Document{{ID: "a", ConnectionID: "c1", Title: "new"}}))

		doc, err := store.Get(ctx, "c1", "a")
		require.NoError(t, err)
		assert.Equal(t, "new", doc.Title)
		require.NotNil(t, doc.StorageKey)
		assert.Equal(t, "key", *doc.StorageKey)
		require.NotNil(t, doc.DownloadState)
		assert.Equal(t, domain.DownloadDone, *doc.DownloadState)
	})

	t.Run("repeated batch is idempotent", func(t *testing.T) {
		store := NewDocumentStore()
		batch := []domain.Document{{ID: "a", ConnectionID: "c1", Title: "A"}}
		require.NoError(t, store.UpsertBatch(ctx, batch))
		require.NoError(t, store.UpsertBatch(ctx, batch))

		docs, err := store.ListByConnection(ctx, "c1", "")
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})
}

func TestDocumentStore_Insert(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	require.NoError(t, store.Insert(ctx, &domain.Document{ID: "a", ConnectionID: "c1"}))
	err := store.Insert(ctx, &domain.Document{ID: "a", ConnectionID: "c1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	ok, err := store.Exists(ctx, "c1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "c2", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentStore_UpdateMetadata(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	err := store.UpdateMetadata(ctx, "c1", "missing", domain.MetadataUpdate{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Insert(ctx, &domain.Document{ID: "a", ConnectionID: "c1", Title: "old", CreatedAt: "t0"}))
	require.NoError(t, store.UpdateMetadata(ctx, "c1", "a", domain.MetadataUpdate{
		Title:       "new",
		UpdatedAt:   "t1",
		ResourceURI: "https://example.com/a",
		ParentID:    strPtr("p"),
	}))

	doc, err := store.Get(ctx, "c1", "a")
	require.NoError(t, err)
	assert.Equal(t, "new", doc.Title)
	assert.Equal(t, "t0", doc.CreatedAt)
	assert.Equal(t, "t1", doc.UpdatedAt)
	assert.Equal(t, "https://example.com/a", doc.ResourceURI)
	assert.Equal(t, "p", *doc.ParentID)
}

func TestDocumentStore_SetDownloadState(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	err := store.SetDownloadState(ctx, "c1", "a", domain.DownloadPending, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Insert(ctx, &domain.Document{ID: "a", ConnectionID: "c1"}))
	require.NoError(t, store.SetDownloadState(ctx, "c1", "a", domain.DownloadDone, strPtr("k1"), nil))
	require.NoError(t, store.SetDownloadState(ctx, "c1", "a", domain.DownloadFailed, nil, strPtr("boom")))

	doc, err := store.Get(ctx, "c1", "a")
	require.NoError(t, err)
	assert.Equal(t, domain.DownloadFailed, *doc.DownloadState)
	assert.Equal(t, "boom", *doc.DownloadError)
	assert.Equal(t, "k1", *doc.StorageKey, "nil storage key keeps the previous key")
}

func TestDocumentStore_ListAndDeleteByConnection(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()
	require.NoError(t, store.UpsertBatch(ctx, []domain.Document{
		{ID: "a", ConnectionID: "c1", UserID: "u1"},
		{ID: "b", ConnectionID: "c1", UserID: "u2"},
		{ID: "c", ConnectionID: "c2", UserID: "u1"},
	}))

	docs, err := store.ListByConnection(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = store.ListByConnection(ctx, "c1", "")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, store.DeleteByConnection(ctx, "c1"))
	docs, err = store.ListByConnection(ctx, "c1", "")
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = store.ListByConnection(ctx, "c2", "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
