package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/blob"
	queuememory "github.com/custodia-labs/sercha-sync/internal/adapters/driven/queue/memory"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/queue/nats"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/storage/mongo"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-sync/internal/config"
	"github.com/custodia-labs/sercha-sync/internal/connectors"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/services"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// stores groups the persistence ports of one backend.
type stores struct {
	connections driven.ConnectionStore
	syncs       driven.SyncStore
	docs        driven.DocumentStore
	ledger      driven.StepLedger
	close       func() error
}

// build wires the services described by cfg.
func build(ctx context.Context, cfg config.Config) (*cli.Services, func() error, error) {
	logger.Section("Startup")

	st, err := openStores(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	queue, err := openQueue(ctx, cfg.Queue)
	if err != nil {
		return nil, nil, errors.Join(err, st.close())
	}
	closeAll := func() error {
		return errors.Join(queue.Close(), st.close())
	}

	blobs, err := blob.New(cfg.Blob.Dir)
	if err != nil {
		return nil, nil, errors.Join(err, closeAll())
	}
	logger.Debug("blob store at %s", cfg.Blob.Dir)

	factory := connectors.NewDefaultFactory()
	steps := services.NewStepRunner(st.ledger, services.StepOptions{
		Timeout:  cfg.Sync.FetchTimeout,
		Attempts: cfg.Sync.StepAttempts,
		Backoff:  cfg.Sync.RetryBackoff,
	})
	syncs := services.NewSyncController(st.connections, st.syncs, st.docs, factory, queue, steps, services.SyncOptions{
		MaxDocuments: cfg.Sync.MaxDocuments,
		SettleDelay:  cfg.Sync.SettleDelay,
	})
	downloads := services.NewDownloadService(st.connections, st.docs, factory, blobs, queue)

	svc := &cli.Services{
		Syncs:       syncs,
		History:     services.NewHistoryService(st.syncs),
		Connections: services.NewConnectionService(st.connections, factory),
		Documents:   services.NewDocumentService(st.docs, blobs),
		Webhooks:    services.NewWebhookService(st.docs, downloads),
		Worker: services.NewJobWorker(queue, syncs, downloads, services.WorkerOptions{
			Concurrency:   cfg.Queue.Concurrency,
			MaxDeliveries: cfg.Sync.MaxDeliveries,
			RetryBackoff:  cfg.Sync.RetryBackoff,
		}),
	}
	return svc, closeAll, nil
}

func openStores(ctx context.Context, cfg config.StorageConfig) (*stores, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return &stores{
			connections: memory.NewConnectionStore(),
			syncs:       memory.NewSyncStore(),
			docs:        memory.NewDocumentStore(),
			ledger:      memory.NewStepLedger(),
			close:       func() error { return nil },
		}, nil

	case config.StorageSQLite:
		s, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("sqlite store at %s", s.Path())
		return &stores{
			connections: s.ConnectionStore(),
			syncs:       s.SyncStore(),
			docs:        s.DocumentStore(),
			ledger:      s.StepLedger(),
			close:       s.Close,
		}, nil

	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s, err := mongo.NewStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("opening mongo store: %w", err)
		}
		logger.Debug("mongo store on database %s", cfg.MongoDatabase)
		return &stores{
			connections: s.ConnectionStore(),
			syncs:       s.SyncStore(),
			docs:        s.DocumentStore(),
			ledger:      s.StepLedger(),
			close: func() error {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return s.Close(closeCtx)
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// jobQueue is a driven.JobQueue that owns a connection.
type jobQueue interface {
	driven.JobQueue
	Close() error
}

func openQueue(ctx context.Context, cfg config.QueueConfig) (jobQueue, error) {
	switch cfg.Driver {
	case config.QueueMemory:
		return queuememory.New(), nil

	case config.QueueNATS:
		q, err := nats.Connect(ctx, cfg.NATSURL, nats.Options{
			Stream:  cfg.Stream,
			Subject: cfg.Subject,
			Durable: cfg.Durable,
		})
		if err != nil {
			return nil, err
		}
		logger.Debug("nats queue on stream %s", cfg.Stream)
		return q, nil
	}
	return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
}
