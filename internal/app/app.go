// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/filing-harvester/internal/config"
	"github.com/JakeFAU/filing-harvester/internal/coordinator"
	"github.com/JakeFAU/filing-harvester/internal/fetcher"
	"github.com/JakeFAU/filing-harvester/internal/filing"
	pubmemory "github.com/JakeFAU/filing-harvester/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/filing-harvester/internal/publisher/pubsub"
	"github.com/JakeFAU/filing-harvester/internal/storage/gcs"
	"github.com/JakeFAU/filing-harvester/internal/storage/local"
	"github.com/JakeFAU/filing-harvester/internal/storage/memory"
	"github.com/JakeFAU/filing-harvester/internal/storage/postgres"
)

// App holds the shared, long-lived services for the harvester. It is built
// once at startup and passed to the commands that need it.
type App struct {
	Logger      *zap.Logger
	Store       filing.Store
	Blobs       filing.BlobStore
	Publisher   filing.Publisher
	Fetcher     *fetcher.Fetcher
	Coordinator *coordinator.Coordinator

	closers []func() error
}

// New wires all providers from configuration, failing fast if any critical
// service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Logger: logger}

	if err := a.initStore(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initBlobs(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPublisher(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.Fetcher = fetcher.New(
		fetcher.Config{
			RequestTimeout:   cfg.Fetcher.Timeout(),
			MaxAttempts:      cfg.Fetcher.MaxAttempts,
			BaseRetryDelay:   cfg.Fetcher.BaseRetryDelay(),
			RateLimitBackoff: cfg.Fetcher.RateLimitBackoff(),
			MinRequestDelay:  cfg.Fetcher.MinRequestDelay(),
			MaxRequestDelay:  cfg.Fetcher.MaxRequestDelay(),
			ProxyBaseURL:     cfg.Fetcher.ProxyBaseURL,
			SourceOrigin:     cfg.Fetcher.SourceOrigin,
			LocalRoot:        cfg.Storage.OutputDir,
			DryRun:           cfg.Fetcher.DryRun,
		},
		nil, a.Blobs, nil, nil, logger.Named("fetcher"),
	)
	a.Coordinator = coordinator.New(
		a.Store,
		a.Fetcher,
		a.Publisher,
		nil,
		coordinator.Config{
			Concurrency: cfg.Batch.Concurrency,
			Topic:       cfg.PubSub.TopicID,
		},
		logger.Named("coordinator"),
	)
	return a, nil
}

func (a *App) initStore(ctx context.Context, cfg config.Config) error {
	switch cfg.DB.Provider {
	case "postgres":
		a.Logger.Info("connecting to postgres", zap.String("table", cfg.DB.Table))
		store, err := postgres.NewFilingStore(ctx, postgres.FilingStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return fmt.Errorf("init filing store: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
	case "memory":
		a.Logger.Info("using in-memory filing store; state is not durable")
		a.Store = memory.NewFilingStore()
	default:
		return fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}
	return nil
}

func (a *App) initBlobs(ctx context.Context, cfg config.Config) error {
	switch cfg.Storage.Provider {
	case "gcs":
		a.Logger.Info("using GCS blob store", zap.String("bucket", cfg.Storage.GCSBucket))
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		blobs, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return fmt.Errorf("init gcs blob store: %w", err)
		}
		a.Blobs = blobs
	case "local":
		a.Logger.Info("using local blob store", zap.String("root", cfg.Storage.LocalRoot))
		blobs, err := local.New(local.Config{BaseDir: cfg.Storage.LocalRoot})
		if err != nil {
			return fmt.Errorf("init local blob store: %w", err)
		}
		a.Blobs = blobs
	case "memory":
		a.Logger.Info("using in-memory blob store; documents are not durable")
		a.Blobs = memory.NewBlobStore()
	case "noop":
		a.Logger.Info("using no-op blob store; document bytes will be discarded")
		a.Blobs = memory.NoOpBlobStore{}
	default:
		return fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context, cfg config.Config) error {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicID == "" {
		a.Publisher = pubmemory.NoOpPublisher{}
		return nil
	}
	a.Logger.Info("connecting to pub/sub", zap.String("topic", cfg.PubSub.TopicID))
	pub, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicID)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}
	a.Publisher = pub
	a.closers = append(a.closers, pub.Close)
	return nil
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
}
