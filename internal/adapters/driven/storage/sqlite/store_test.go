package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

func strPtr(s string) *string { return &s }

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DBFile), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.ConnectionStore().Save(context.Background(), &domain.Connection{ID: "c1", UserID: "u1", IntegrationKey: "box"}))
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	_, err = store.ConnectionStore().Get(context.Background(), "c1")
	assert.NoError(t, err)
}

// ==================== Document Store Tests ====================

func TestDocumentStore_UpsertBatch(t *testing.T) {
	ctx := context.Background()
	docs := setupTestStore(t).DocumentStore()

	batch := []domain.Document{
		{ID: "a", ConnectionID: "c1", UserID: "u1", Title: "A", CanHaveChildren: true, ResourceURI: "https://x/a"},
		{ID: "b", ConnectionID: "c1", UserID: "u1", Title: "B", CanDownload: true, ParentID: strPtr("a"), LastSyncedAt: strPtr("t1")},
	}
	require.NoError(t, docs.UpsertBatch(ctx, batch))
	require.NoError(t, docs.UpsertBatch(ctx, batch))

	list, err := docs.ListByConnection(ctx, "c1", "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CanHaveChildren)
	assert.Nil(t, list[0].ParentID)
	assert.Nil(t, list[0].Content)
	assert.True(t, list[1].CanDownload)
	assert.Equal(t, "a", *list[1].ParentID)
	assert.Equal(t, "t1", *list[1].LastSyncedAt)
}

func TestDocumentStore_UpsertKeepsDownloadFields(t *testing.T) {
	ctx := context.Background()
	docs := setupTestStore(t).DocumentStore()

	require.NoError(t, docs.UpsertBatch(ctx, []domain.Document{{ID: "a", ConnectionID: "c1", Title: "old"}}))
	require.NoError(t, docs.SetDownloadState(ctx, "c1", "a", domain.DownloadDone, strPtr("k"), nil))
	require.NoError(t, docs.UpsertBatch(ctx, []domain.Document{{ID: "a", ConnectionID: "c1", Title: "new"}}))

	doc, err := docs.Get(ctx, "c1", "a")
	require.NoError(t, err)
	assert.Equal(t, "new", doc.Title)
	assert.Equal(t, "k", *doc.StorageKey)
	assert.Equal(t, domain.DownloadDone, *doc.DownloadState)
}

func TestDocumentStore_InsertAndExists(t *testing.T) {
	ctx := context.Background()
	docs := setupTestStore(t).DocumentStore()

	require.NoError(t, docs.Insert(ctx, &domain.Document{ID: "a", ConnectionID: "c1", UserID: "u1"}))
	assert.ErrorIs(t, docs.Insert(ctx, &domain.Document{ID: "a", ConnectionID: "c1"}), domain.ErrAlreadyExists)
	require.NoError(t, docs.Insert(ctx, &domain.Document{ID: "a", ConnectionID: "c2"}))

	ok, err := docs.Exists(ctx, "c1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = docs.Exists(ctx, "c3", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = docs.Get(ctx, "c3", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_UpdateMetadata(t *testing.T) {
	ctx := context.Background()
	docs := setupTestStore(t).DocumentStore()

	assert.ErrorIs(t, docs.UpdateMetadata(ctx, "c1", "a", domain.MetadataUpdate{}), domain.ErrNotFound)

	require.NoError(t, docs.Insert(ctx, &domain.Document{ID: "a", ConnectionID: "c1", Title: "old", ParentID: strPtr("p0")}))
	require.NoError(t, docs.UpdateMetadata(ctx, "c1", "a", domain.MetadataUpdate{Title: "new", UpdatedAt: "t2"}))

	doc, err := docs.Get(ctx, "c1", "a")
	require.NoError(t, err)
	assert.Equal(t, "new", doc.Title)
	assert.Equal(t, "t2", doc.UpdatedAt)
	assert.Nil(t, doc.ParentID)
}

func TestDocumentStore_SetDownloadState(t *testing.T) {
	ctx := context.Background()
	docs := setupTestStore(t).DocumentStore()

	assert.ErrorIs(t, docs.SetDownloadState(ctx, "c1", "a", domain.DownloadPending, nil, nil), domain.ErrNotFound)

	require.NoError(t, docs.Insert(ctx, &domain.Document{ID: "a", ConnectionID: "c1"}))
	require.NoError(t, docs.SetDownloadState(ctx, "c1", "a", domain.DownloadDone, strPtr("k1"), nil))
	require.NoError(t, docs.SetDownloadState(ctx, "c1", "a", domain.DownloadFailed, nil, strPtr("boom")))

	doc, err := docs.Get(ctx, "c1", "a")
	require.NoError(t, err)
	assert.Equal(t, domain.DownloadFailed, *doc.DownloadState)
	assert.Equal(t, "boom", *doc.DownloadError)
	assert.Equal(t, "k1", *doc.StorageKey)
}

func TestDocumentStore_DeleteByConnection(t *testing.T) {
	ctx := context.Background()
	docs := setupTestStore(t).DocumentStore()

	require.NoError(t, docs.UpsertBatch(ctx, []domain.Document{
		{ID: "a", ConnectionID: "c1", UserID: "u1"},
		{ID: "b", ConnectionID: "c1", UserID: "u2"},
		{ID: "a", ConnectionID: "c2", UserID: "u1"},
	}))

	all, err := docs.ListByConnection(ctx, "c1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, docs.DeleteByConnection(ctx, "c1"))
	all, err = docs.ListByConnection(ctx, "c1", "")
	require.NoError(t, err)
	assert.Empty(t, all)

	other, err := docs.ListByConnection(ctx, "c2", "u1")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

// ==================== Sync Store Tests ====================

func newSync(id, conn string, started time.Time) *domain.Sync {
	return domain.NewSync(id, conn, "u1", domain.IntegrationMeta{ID: "box", Name: "Box"}, []string{"r1", "r2"}, started)
}

func TestSyncStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	syncs := setupTestStore(t).SyncStore()

	require.NoError(t, syncs.Create(ctx, newSync("s1", "c1", t0)))

	got, err := syncs.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncInProgress, got.Status)
	assert.Equal(t, []string{"r1", "r2"}, got.DocumentIDs)
	assert.Nil(t, got.ActualSyncedDocumentIDs)
	assert.Nil(t, got.CompletedAt)
	assert.True(t, t0.Equal(got.StartedAt))
	assert.Equal(t, "Box", got.IntegrationName)

	_, err = syncs.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncStore_OneInProgressPerConnection(t *testing.T) {
	ctx := context.Background()
	syncs := setupTestStore(t).SyncStore()

	s1 := newSync("s1", "c1", t0)
	require.NoError(t, syncs.Create(ctx, s1))
	assert.ErrorIs(t, syncs.Create(ctx, newSync("s2", "c1", t0.Add(time.Minute))), domain.ErrSyncInProgress)
	require.NoError(t, syncs.Create(ctx, newSync("s3", "c2", t0)))

	s1.MarkCompleted(t0.Add(time.Second), []string{"r1"}, false)
	require.NoError(t, syncs.Update(ctx, s1))
	require.NoError(t, syncs.Create(ctx, newSync("s2", "c1", t0.Add(time.Minute))))

	done := newSync("s9", "c9", t0)
	done.MarkFailed(t0, "boom")
	require.NoError(t, syncs.Create(ctx, done))
	assert.ErrorIs(t, syncs.Create(ctx, done), domain.ErrAlreadyExists)
}

func TestSyncStore_Update(t *testing.T) {
	ctx := context.Background()
	syncs := setupTestStore(t).SyncStore()

	s := newSync("s1", "c1", t0)
	assert.ErrorIs(t, syncs.Update(ctx, s), domain.ErrNotFound)
	require.NoError(t, syncs.Create(ctx, s))

	s.MarkCompleted(t0.Add(time.Minute), []string{"r1", "x"}, true)
	require.NoError(t, syncs.Update(ctx, s))

	got, err := syncs.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, t0.Add(time.Minute).Equal(*got.CompletedAt))
	assert.True(t, got.IsTruncated)
	assert.Equal(t, []string{"r1", "x"}, got.ActualSyncedDocumentIDs)
	assert.Nil(t, got.Error)

	s2 := newSync("s2", "c2", t0)
	require.NoError(t, syncs.Create(ctx, s2))
	s2.MarkFailed(t0.Add(time.Second), "Connection archived")
	require.NoError(t, syncs.Update(ctx, s2))

	got, err = syncs.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncFailed, got.Status)
	assert.Equal(t, "Connection archived", *got.Error)
}

func TestSyncStore_Listing(t *testing.T) {
	ctx := context.Background()
	syncs := setupTestStore(t).SyncStore()

	for i := range 3 {
		s := newSync("s"+string(rune('1'+i)), "c1", t0.Add(time.Duration(i)*time.Hour))
		if i < 2 {
			s.MarkCompleted(s.StartedAt.Add(time.Minute), nil, false)
		}
		require.NoError(t, syncs.Create(ctx, s))
	}

	latest, err := syncs.Latest(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "s3", latest.ID)

	_, err = syncs.Latest(ctx, "none")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	history, err := syncs.ListByConnection(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "s3", history[0].ID)
	assert.Equal(t, "s2", history[1].ID)

	recent, err := syncs.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	running, err := syncs.ListInProgress(ctx)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "s3", running[0].ID)

	require.NoError(t, syncs.Delete(ctx, "s3"))
	require.NoError(t, syncs.DeleteByConnection(ctx, "c1"))
	recent, err = syncs.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

// ==================== Step Ledger Tests ====================

func TestStepLedger(t *testing.T) {
	ctx := context.Background()
	ledger := setupTestStore(t).StepLedger()

	_, err := ledger.Get(ctx, "sync:s1", "fetch-root-document-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, ledger.Record(ctx, domain.StepRecord{JobID: "sync:s1", StepID: "fetch-root-document-a", Output: []byte(`{"id":"a"}`)}))
	require.NoError(t, ledger.Record(ctx, domain.StepRecord{JobID: "sync:s1", StepID: "fetch-root-document-a", Output: []byte(`{"id":"b"}`)}))

	rec, err := ledger.Get(ctx, "sync:s1", "fetch-root-document-a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a"}`, string(rec.Output))
	assert.False(t, rec.CompletedAt.IsZero())

	require.NoError(t, ledger.DeleteJob(ctx, "sync:s1"))
	_, err = ledger.Get(ctx, "sync:s1", "fetch-root-document-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Connection Store Tests ====================

func TestConnectionStore(t *testing.T) {
	ctx := context.Background()
	conns := setupTestStore(t).ConnectionStore()

	_, err := conns.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	conn := &domain.Connection{
		ID:              "c1",
		UserID:          "u1",
		IntegrationKey:  domain.IntegrationBox,
		IntegrationName: "Box",
		AccessToken:     "secret",
		CreatedAt:       t0,
	}
	require.NoError(t, conns.Save(ctx, conn))
	require.NoError(t, conns.Save(ctx, &domain.Connection{ID: "c2", UserID: "u1", IntegrationKey: domain.IntegrationSharePoint, CreatedAt: t0.Add(time.Hour)}))

	got, err := conns.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "secret", got.AccessToken)
	assert.Equal(t, "Box", got.IntegrationName)
	assert.True(t, t0.Equal(got.CreatedAt))

	conn.AccessToken = "rotated"
	require.NoError(t, conns.Save(ctx, conn))
	got, err = conns.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.AccessToken)

	list, err := conns.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)

	require.NoError(t, conns.Delete(ctx, "c1"))
	_, err = conns.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
