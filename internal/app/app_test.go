package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/filing-harvester/internal/config"
	pubmemory "github.com/JakeFAU/filing-harvester/internal/publisher/memory"
)

func memoryConfig() config.Config {
	return config.Config{
		Fetcher: config.FetcherConfig{MaxAttempts: 3, TimeoutSeconds: 5},
		Batch:   config.BatchConfig{Concurrency: 2},
		Storage: config.StorageConfig{Provider: "memory"},
		DB:      config.DBConfig{Provider: "memory"},
	}
}

func TestNewWithMemoryProviders(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Store)
	require.NotNil(t, a.Blobs)
	require.NotNil(t, a.Fetcher)
	require.NotNil(t, a.Coordinator)
}

func TestNewWithoutTopicUsesNoOpPublisher(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.IsType(t, pubmemory.NoOpPublisher{}, a.Publisher)

	id, err := a.Publisher.Publish(context.Background(), "filings-stored", map[string]any{"filing_id": "f-1"})
	require.NoError(t, err)
	require.Equal(t, "noop", id)
}

func TestNewWithNoopBlobStore(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.Storage.Provider = "noop"
	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Blobs)
}

func TestNewRejectsUnknownProviders(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig()
	cfg.DB.Provider = "mysql"
	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)

	cfg = memoryConfig()
	cfg.Storage.Provider = "s3"
	_, err = New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
