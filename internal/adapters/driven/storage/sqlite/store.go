package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// DBFile is the database file name inside the data directory.
const DBFile = "sync.db"

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-sync/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-sync", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// SyncStore returns a SyncStore interface backed by this store.
func (s *Store) SyncStore() driven.SyncStore {
	return &syncStore{store: s}
}

// StepLedger returns a StepLedger interface backed by this store.
func (s *Store) StepLedger() driven.StepLedger {
	return &stepLedger{store: s}
}

// ConnectionStore returns a ConnectionStore interface backed by this store.
func (s *Store) ConnectionStore() driven.ConnectionStore {
	return &connectionStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the given table.column.
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

// nullString converts an optional string to sql.NullString.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr converts a scanned nullable column to an optional string.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, connection_id, user_id, title, can_have_children, can_download,
	resource_uri, created_at, updated_at, parent_id, content, storage_key, last_synced_at,
	download_state, download_error`

// UpsertBatch inserts or replaces documents in one transaction. Content,
// storage key and download columns of existing rows are left untouched.
func (s *documentStore) UpsertBatch(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, connection_id, user_id, title, can_have_children, can_download,
			resource_uri, created_at, updated_at, parent_id, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(connection_id, id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			can_have_children = excluded.can_have_children,
			can_download = excluded.can_download,
			resource_uri = excluded.resource_uri,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			parent_id = excluded.parent_id,
			last_synced_at = excluded.last_synced_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for i := range docs {
		d := &docs[i]
		if _, err := stmt.ExecContext(ctx, d.ID, d.ConnectionID, d.UserID, d.Title,
			d.CanHaveChildren, d.CanDownload, d.ResourceURI, d.CreatedAt, d.UpdatedAt,
			nullString(d.ParentID), nullString(d.LastSyncedAt)); err != nil {
			return fmt.Errorf("upserting document %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Get retrieves a document.
func (s *documentStore) Get(ctx context.Context, connectionID, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE connection_id = ? AND id = ?",
		connectionID, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// Exists reports whether a document is tracked.
func (s *documentStore) Exists(ctx context.Context, connectionID, id string) (bool, error) {
	var one int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT 1 FROM documents WHERE connection_id = ? AND id = ?", connectionID, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking document: %w", err)
	}
	return true, nil
}

// Insert adds a new document.
func (s *documentStore) Insert(ctx context.Context, d *domain.Document) error {
	var state sql.NullString
	if d.DownloadState != nil {
		state = sql.NullString{String: string(*d.DownloadState), Valid: true}
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.ConnectionID, d.UserID, d.Title, d.CanHaveChildren, d.CanDownload,
		d.ResourceURI, d.CreatedAt, d.UpdatedAt, nullString(d.ParentID), nullString(d.Content),
		nullString(d.StorageKey), nullString(d.LastSyncedAt), state, nullString(d.DownloadError))
	if isUniqueViolation(err, "documents.") {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// UpdateMetadata overwrites provider metadata of an existing document.
func (s *documentStore) UpdateMetadata(ctx context.Context, connectionID, id string, u domain.MetadataUpdate) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET title = ?, updated_at = ?, resource_uri = ?, parent_id = ?
		WHERE connection_id = ? AND id = ?
	`, u.Title, u.UpdatedAt, u.ResourceURI, nullString(u.ParentID), connectionID, id)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	return requireAffected(res)
}

// SetDownloadState records download progress.
func (s *documentStore) SetDownloadState(
	ctx context.Context,
	connectionID, id string,
	state domain.DownloadState,
	storageKey, downloadErr *string,
) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET download_state = ?, download_error = ?,
			storage_key = COALESCE(?, storage_key)
		WHERE connection_id = ? AND id = ?
	`, string(state), nullString(downloadErr), nullString(storageKey), connectionID, id)
	if err != nil {
		return fmt.Errorf("updating download state: %w", err)
	}
	return requireAffected(res)
}

// ListByConnection returns documents of a connection ordered by id.
func (s *documentStore) ListByConnection(ctx context.Context, connectionID, userID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE connection_id = ? AND (? = '' OR user_id = ?) ORDER BY id",
		connectionID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteByConnection removes every document of a connection.
func (s *documentStore) DeleteByConnection(ctx context.Context, connectionID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE connection_id = ?", connectionID); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var d domain.Document
	var parentID, content, storageKey, lastSynced, state, downloadErr sql.NullString
	if err := row.Scan(&d.ID, &d.ConnectionID, &d.UserID, &d.Title, &d.CanHaveChildren,
		&d.CanDownload, &d.ResourceURI, &d.CreatedAt, &d.UpdatedAt, &parentID, &content,
		&storageKey, &lastSynced, &state, &downloadErr); err != nil {
		return nil, err
	}
	d.ParentID = stringPtr(parentID)
	d.Content = stringPtr(content)
	d.StorageKey = stringPtr(storageKey)
	d.LastSyncedAt = stringPtr(lastSynced)
	d.DownloadError = stringPtr(downloadErr)
	if state.Valid {
		ds := domain.DownloadState(state.String)
		d.DownloadState = &ds
	}
	return &d, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Sync Store ====================

// syncStore implements driven.SyncStore.
type syncStore struct {
	store *Store
}

var _ driven.SyncStore = (*syncStore)(nil)

const syncColumns = `id, user_id, connection_id, integration_id, integration_name, integration_logo,
	sync_status, sync_started_at, sync_completed_at, sync_error, is_truncated, document_ids,
	actual_synced_document_ids, created_at, updated_at`

// Create stores a new sync. The partial unique index on in-progress syncs
// rejects a second running sync for the same connection.
func (s *syncStore) Create(ctx context.Context, sync *domain.Sync) error {
	docIDs, synced, err := marshalSyncIDs(sync)
	if err != nil {
		return err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO syncs (`+syncColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sync.ID, sync.UserID, sync.ConnectionID, sync.IntegrationID, sync.IntegrationName,
		sync.IntegrationLogo, string(sync.Status), sync.StartedAt.UTC(), nullTime(sync.CompletedAt),
		nullString(sync.Error), sync.IsTruncated, docIDs, synced,
		sync.CreatedAt.UTC(), sync.UpdatedAt.UTC())
	switch {
	case isUniqueViolation(err, "syncs.id"):
		return domain.ErrAlreadyExists
	case isUniqueViolation(err, "syncs.connection_id"):
		return domain.ErrSyncInProgress
	case err != nil:
		return fmt.Errorf("inserting sync: %w", err)
	}
	return nil
}

// Get retrieves a sync by ID.
func (s *syncStore) Get(ctx context.Context, id string) (*domain.Sync, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+syncColumns+" FROM syncs WHERE id = ?", id)
	sync, err := scanSync(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning sync: %w", err)
	}
	return sync, nil
}

// Update replaces a stored sync.
func (s *syncStore) Update(ctx context.Context, sync *domain.Sync) error {
	docIDs, synced, err := marshalSyncIDs(sync)
	if err != nil {
		return err
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE syncs SET
			integration_id = ?, integration_name = ?, integration_logo = ?,
			sync_status = ?, sync_completed_at = ?, sync_error = ?, is_truncated = ?,
			document_ids = ?, actual_synced_document_ids = ?, updated_at = ?
		WHERE id = ?
	`, sync.IntegrationID, sync.IntegrationName, sync.IntegrationLogo, string(sync.Status),
		nullTime(sync.CompletedAt), nullString(sync.Error), sync.IsTruncated, docIDs, synced,
		sync.UpdatedAt.UTC(), sync.ID)
	if isUniqueViolation(err, "syncs.connection_id") {
		return domain.ErrSyncInProgress
	}
	if err != nil {
		return fmt.Errorf("updating sync: %w", err)
	}
	return requireAffected(res)
}

// Latest returns the newest sync of a connection.
func (s *syncStore) Latest(ctx context.Context, connectionID string) (*domain.Sync, error) {
	syncs, err := s.ListByConnection(ctx, connectionID, 1)
	if err != nil {
		return nil, err
	}
	if len(syncs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &syncs[0], nil
}

// ListByConnection returns syncs of a connection newest first.
func (s *syncStore) ListByConnection(ctx context.Context, connectionID string, limit int) ([]domain.Sync, error) {
	return s.query(ctx, "WHERE connection_id = ?", limit, connectionID)
}

// ListByUser returns syncs of a user newest first.
func (s *syncStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Sync, error) {
	return s.query(ctx, "WHERE user_id = ?", limit, userID)
}

// ListInProgress returns every in-progress sync.
func (s *syncStore) ListInProgress(ctx context.Context) ([]domain.Sync, error) {
	return s.query(ctx, "WHERE sync_status = ?", 0, string(domain.SyncInProgress))
}

// Delete removes one sync.
func (s *syncStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM syncs WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting sync: %w", err)
	}
	return nil
}

// DeleteByConnection removes every sync of a connection.
func (s *syncStore) DeleteByConnection(ctx context.Context, connectionID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM syncs WHERE connection_id = ?", connectionID); err != nil {
		return fmt.Errorf("deleting syncs: %w", err)
	}
	return nil
}

// query lists syncs newest first. A limit <= 0 means no limit.
func (s *syncStore) query(ctx context.Context, where string, limit int, args ...any) ([]domain.Sync, error) {
	q := "SELECT " + syncColumns + " FROM syncs " + where + " ORDER BY sync_started_at DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying syncs: %w", err)
	}
	defer rows.Close()

	syncs := []domain.Sync{}
	for rows.Next() {
		sync, err := scanSync(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sync: %w", err)
		}
		syncs = append(syncs, *sync)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating syncs: %w", err)
	}
	return syncs, nil
}

func scanSync(row scanner) (*domain.Sync, error) {
	var sync domain.Sync
	var status, docIDs, synced string
	var completedAt sql.NullTime
	var syncErr sql.NullString
	if err := row.Scan(&sync.ID, &sync.UserID, &sync.ConnectionID, &sync.IntegrationID,
		&sync.IntegrationName, &sync.IntegrationLogo, &status, &sync.StartedAt, &completedAt,
		&syncErr, &sync.IsTruncated, &docIDs, &synced, &sync.CreatedAt, &sync.UpdatedAt); err != nil {
		return nil, err
	}

	sync.Status = domain.SyncStatus(status)
	sync.Error = stringPtr(syncErr)
	if completedAt.Valid {
		t := completedAt.Time
		sync.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(docIDs), &sync.DocumentIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling document ids: %w", err)
	}
	if err := json.Unmarshal([]byte(synced), &sync.ActualSyncedDocumentIDs); err != nil {
		return nil, fmt.Errorf("unmarshaling synced ids: %w", err)
	}
	return &sync, nil
}

func marshalSyncIDs(sync *domain.Sync) (string, string, error) {
	docIDs := sync.DocumentIDs
	if docIDs == nil {
		docIDs = []string{}
	}
	a, err := json.Marshal(docIDs)
	if err != nil {
		return "", "", fmt.Errorf("marshalling document ids: %w", err)
	}
	b, err := json.Marshal(sync.ActualSyncedDocumentIDs)
	if err != nil {
		return "", "", fmt.Errorf("marshalling synced ids: %w", err)
	}
	return string(a), string(b), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// ==================== Step Ledger ====================

// stepLedger implements driven.StepLedger.
type stepLedger struct {
	store *Store
}

var _ driven.StepLedger = (*stepLedger)(nil)

// Get returns a recorded step.
func (l *stepLedger) Get(ctx context.Context, jobID, stepID string) (*domain.StepRecord, error) {
	rec := domain.StepRecord{JobID: jobID, StepID: stepID}
	err := l.store.db.QueryRowContext(ctx,
		"SELECT output, completed_at FROM job_steps WHERE job_id = ? AND step_id = ?",
		jobID, stepID).Scan(&rec.Output, &rec.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning step: %w", err)
	}
	return &rec, nil
}

// Record stores a completed step unless it is already recorded.
func (l *stepLedger) Record(ctx context.Context, rec domain.StepRecord) error {
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO job_steps (job_id, step_id, output, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(job_id, step_id) DO NOTHING
	`, rec.JobID, rec.StepID, rec.Output, rec.CompletedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording step: %w", err)
	}
	return nil
}

// DeleteJob purges every step of a job.
func (l *stepLedger) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := l.store.db.ExecContext(ctx, "DELETE FROM job_steps WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("deleting steps: %w", err)
	}
	return nil
}

// ==================== Connection Store ====================

// connectionStore implements driven.ConnectionStore.
type connectionStore struct {
	store *Store
}

var _ driven.ConnectionStore = (*connectionStore)(nil)

const connectionColumns = `id, user_id, integration_key, integration_name, integration_logo,
	access_token, base_url, created_at, updated_at`

// Save creates or updates a connection.
func (s *connectionStore) Save(ctx context.Context, conn *domain.Connection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO connections (`+connectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			integration_key = excluded.integration_key,
			integration_name = excluded.integration_name,
			integration_logo = excluded.integration_logo,
			access_token = excluded.access_token,
			base_url = excluded.base_url,
			updated_at = excluded.updated_at
	`, conn.ID, conn.UserID, conn.IntegrationKey, conn.IntegrationName, conn.IntegrationLogo,
		conn.AccessToken, conn.BaseURL, conn.CreatedAt.UTC(), conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving connection: %w", err)
	}
	return nil
}

// Get retrieves a connection.
func (s *connectionStore) Get(ctx context.Context, id string) (*domain.Connection, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+connectionColumns+" FROM connections WHERE id = ?", id)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning connection: %w", err)
	}
	return conn, nil
}

// Delete removes a connection.
func (s *connectionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM connections WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}
	return nil
}

// ListByUser returns connections of a user ordered by creation time.
func (s *connectionStore) ListByUser(ctx context.Context, userID string) ([]domain.Connection, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+connectionColumns+" FROM connections WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer rows.Close()

	conns := []domain.Connection{}
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		conns = append(conns, *conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}
	return conns, nil
}

func scanConnection(row scanner) (*domain.Connection, error) {
	var c domain.Connection
	if err := row.Scan(&c.ID, &c.UserID, &c.IntegrationKey, &c.IntegrationName, &c.IntegrationLogo,
		&c.AccessToken, &c.BaseURL, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
