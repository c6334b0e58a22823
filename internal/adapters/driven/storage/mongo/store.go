package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Collection names.
const (
	DocumentsCollection   = "documents"
	SyncsCollection       = "syncs"
	StepsCollection       = "job_steps"
	ConnectionsCollection = "connections"
)

// inProgressIndex is the partial unique index on running syncs.
const inProgressIndex = "one_in_progress_per_connection"

// Store holds the collections of one database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to uri, verifies the connection and ensures indexes.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s := NewStoreFromDatabase(client.Database(dbName))
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// NewStoreFromDatabase wraps an existing database handle.
func NewStoreFromDatabase(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates the indexes the stores rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		DocumentsCollection: {
			{
				Keys:    bson.D{{Key: "connectionId", Value: 1}, {Key: "id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "connectionId", Value: 1}, {Key: "userId", Value: 1}}},
		},
		SyncsCollection: {
			{
				Keys: bson.D{{Key: "connectionId", Value: 1}},
				Options: options.Index().
					SetName(inProgressIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"syncStatus": string(domain.SyncInProgress)}),
			},
			{Keys: bson.D{{Key: "connectionId", Value: 1}, {Key: "syncStartedAt", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "syncStartedAt", Value: -1}}},
		},
		StepsCollection: {
			{
				Keys:    bson.D{{Key: "jobId", Value: 1}, {Key: "stepId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		ConnectionsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
	}
	return nil
}

// Close disconnects the client if the store owns it.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// DocumentStore returns a DocumentStore backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{coll: s.db.Collection(DocumentsCollection)}
}

// SyncStore returns a SyncStore backed by this store.
func (s *Store) SyncStore() driven.SyncStore {
	return &syncStore{coll: s.db.Collection(SyncsCollection)}
}

// StepLedger returns a StepLedger backed by this store.
func (s *Store) StepLedger() driven.StepLedger {
	return &stepLedger{coll: s.db.Collection(StepsCollection)}
}

// ConnectionStore returns a ConnectionStore backed by this store.
func (s *Store) ConnectionStore() driven.ConnectionStore {
	return &connectionStore{coll: s.db.Collection(ConnectionsCollection)}
}

// ==================== Document Store ====================

type documentStore struct {
	coll *mongo.Collection
}

var _ driven.DocumentStore = (*documentStore)(nil)

func docFilter(connectionID, id string) bson.M {
	return bson.M{"connectionId": connectionID, "id": id}
}

func (s *documentStore) UpsertBatch(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(docFilter(d.ConnectionID, d.ID)).
			SetUpsert(true).
			SetUpdate(bson.M{
				"$set": bson.M{
					"userId":          d.UserID,
					"title":           d.Title,
					"canHaveChildren": d.CanHaveChildren,
					"canDownload":     d.CanDownload,
					"resourceURI":     d.ResourceURI,
					"createdAt":       d.CreatedAt,
					"updatedAt":       d.UpdatedAt,
					"parentId":        d.ParentID,
					"lastSyncedAt":    d.LastSyncedAt,
				},
				"$setOnInsert": bson.M{
					"content":       nil,
					"storageKey":    nil,
					"downloadState": nil,
					"downloadError": nil,
				},
			}))
	}

	if _, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("bulk upsert: %w", err)
	}
	return nil
}

func (s *documentStore) Get(ctx context.Context, connectionID, id string) (*domain.Document, error) {
	var doc domain.Document
	err := s.coll.FindOne(ctx, docFilter(connectionID, id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding document: %w", err)
	}
	return &doc, nil
}

func (s *documentStore) Exists(ctx context.Context, connectionID, id string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, docFilter(connectionID, id), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("counting documents: %w", err)
	}
	return n > 0, nil
}

func (s *documentStore) Insert(ctx context.Context, doc *domain.Document) error {
	_, err := s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

func (s *documentStore) UpdateMetadata(ctx context.Context, connectionID, id string, u domain.MetadataUpdate) error {
	res, err := s.coll.UpdateOne(ctx, docFilter(connectionID, id), bson.M{"$set": bson.M{
		"title":       u.Title,
		"updatedAt":   u.UpdatedAt,
		"resourceURI": u.ResourceURI,
		"parentId":    u.ParentID,
	}})
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *documentStore) SetDownloadState(
	ctx context.Context,
	connectionID, id string,
	state domain.DownloadState,
	storageKey, downloadErr *string,
) error {
	set := bson.M{"downloadState": state, "downloadError": downloadErr}
	if storageKey != nil {
		set["storageKey"] = *storageKey
	}
	res, err := s.coll.UpdateOne(ctx, docFilter(connectionID, id), bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("updating download state: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *documentStore) ListByConnection(ctx context.Context, connectionID, userID string) ([]domain.Document, error) {
	filter := bson.M{"connectionId": connectionID}
	if userID != "" {
		filter["userId"] = userID
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding documents: %w", err)
	}
	docs := []domain.Document{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding documents: %w", err)
	}
	return docs, nil
}

func (s *documentStore) DeleteByConnection(ctx context.Context, connectionID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"connectionId": connectionID}); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

// ==================== Sync Store ====================

type syncStore struct {
	coll *mongo.Collection
}

var _ driven.SyncStore = (*syncStore)(nil)

var newestFirst = bson.D{{Key: "syncStartedAt", Value: -1}, {Key: "_id", Value: -1}}

func (s *syncStore) Create(ctx context.Context, sync *domain.Sync) error {
	_, err := s.coll.InsertOne(ctx, sync)
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), inProgressIndex) {
			return domain.ErrSyncInProgress
		}
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("inserting sync: %w", err)
	}
	return nil
}

func (s *syncStore) Get(ctx context.Context, id string) (*domain.Sync, error) {
	var sync domain.Sync
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&sync)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding sync: %w", err)
	}
	return &sync, nil
}

func (s *syncStore) Update(ctx context.Context, sync *domain.Sync) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": sync.ID}, sync)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrSyncInProgress
	}
	if err != nil {
		return fmt.Errorf("replacing sync: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *syncStore) Latest(ctx context.Context, connectionID string) (*domain.Sync, error) {
	var sync domain.Sync
	err := s.coll.FindOne(ctx, bson.M{"connectionId": connectionID},
		options.FindOne().SetSort(newestFirst)).Decode(&sync)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding latest sync: %w", err)
	}
	return &sync, nil
}

func (s *syncStore) ListByConnection(ctx context.Context, connectionID string, limit int) ([]domain.Sync, error) {
	return s.find(ctx, bson.M{"connectionId": connectionID}, limit)
}

func (s *syncStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Sync, error) {
	return s.find(ctx, bson.M{"userId": userID}, limit)
}

func (s *syncStore) ListInProgress(ctx context.Context) ([]domain.Sync, error) {
	return s.find(ctx, bson.M{"syncStatus": domain.SyncInProgress}, 0)
}

func (s *syncStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting sync: %w", err)
	}
	return nil
}

func (s *syncStore) DeleteByConnection(ctx context.Context, connectionID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"connectionId": connectionID}); err != nil {
		return fmt.Errorf("deleting syncs: %w", err)
	}
	return nil
}

func (s *syncStore) find(ctx context.Context, filter bson.M, limit int) ([]domain.Sync, error) {
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding syncs: %w", err)
	}
	syncs := []domain.Sync{}
	if err := cur.All(ctx, &syncs); err != nil {
		return nil, fmt.Errorf("decoding syncs: %w", err)
	}
	return syncs, nil
}

// ==================== Step Ledger ====================

type stepLedger struct {
	coll *mongo.Collection
}

var _ driven.StepLedger = (*stepLedger)(nil)

func (l *stepLedger) Get(ctx context.Context, jobID, stepID string) (*domain.StepRecord, error) {
	var rec domain.StepRecord
	err := l.coll.FindOne(ctx, bson.M{"jobId": jobID, "stepId": stepID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding step: %w", err)
	}
	return &rec, nil
}

func (l *stepLedger) Record(ctx context.Context, rec domain.StepRecord) error {
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}
	_, err := l.coll.InsertOne(ctx, rec)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("recording step: %w", err)
	}
	return nil
}

func (l *stepLedger) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := l.coll.DeleteMany(ctx, bson.M{"jobId": jobID}); err != nil {
		return fmt.Errorf("deleting steps: %w", err)
	}
	return nil
}

// ==================== Connection Store ====================

type connectionStore struct {
	coll *mongo.Collection
}

var _ driven.ConnectionStore = (*connectionStore)(nil)

func (s *connectionStore) Save(ctx context.Context, conn *domain.Connection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": conn.ID}, conn, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving connection: %w", err)
	}
	return nil
}

func (s *connectionStore) Get(ctx context.Context, id string) (*domain.Connection, error) {
	var conn domain.Connection
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding connection: %w", err)
	}
	return &conn, nil
}

func (s *connectionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}
	return nil
}

func (s *connectionStore) ListByUser(ctx context.Context, userID string) ([]domain.Connection, error) {
	cur, err := s.coll.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding connections: %w", err)
	}
	conns := []domain.Connection{}
	if err := cur.All(ctx, &conns); err != nil {
		return nil, fmt.Errorf("decoding connections: %w", err)
	}
	return conns, nil
}
