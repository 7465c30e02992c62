package ragbase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ragbase/ai/mock"
	"github.com/poiesic/ragbase/config"
	"github.com/poiesic/ragbase/core"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "test_db")
	return cfg
}

func TestOpen(t *testing.T) {
	t.Run("create new system", func(t *testing.T) {
		sys, err := Open(testConfig(t), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, sys)
		defer sys.Close()

		// Verify components are initialized
		assert.NotNil(t, sys.DocumentRepository())
		assert.NotNil(t, sys.ChunkRepository())
		assert.NotNil(t, sys.EmbeddingRepository())
		assert.NotNil(t, sys.Provider())
		assert.NotNil(t, sys.Limiter())
		assert.NotNil(t, sys.backend)
		assert.NotNil(t, sys.logger)
	})

	t.Run("in-memory system", func(t *testing.T) {
		cfg := config.Default()
		cfg.Storage.Path = ""
		cfg.Storage.InMemory = true

		sys, err := Open(cfg, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer sys.Close()
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// A regular file where the database directory should be
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		cfg := config.Default()
		cfg.Storage.Path = tmpFile

		sys, err := Open(cfg, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, sys)
	})
}

func TestSystem_Close(t *testing.T) {
	sys, err := Open(testConfig(t), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	require.NotNil(t, sys)

	assert.NoError(t, sys.Close())
}

func TestSystem_FactoryMethods(t *testing.T) {
	sys, err := Open(testConfig(t), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer sys.Close()

	t.Run("can create pipeline", func(t *testing.T) {
		p, err := sys.NewPipeline()
		require.NoError(t, err)
		require.NotNil(t, p)
		p.Release()
	})

	t.Run("can create retriever", func(t *testing.T) {
		r, err := sys.NewRetriever()
		require.NoError(t, err)
		require.NotNil(t, r)
	})

	t.Run("can create fetcher", func(t *testing.T) {
		f, err := sys.NewFetcher()
		require.NoError(t, err)
		require.NotNil(t, f)
	})
}

func TestSystem_Stats(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Storage.Path = ""

	sys, err := Open(cfg, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer sys.Close()

	ctx := context.Background()

	stats, err := sys.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Documents)
	assert.Equal(t, 0, stats.Embeddings)

	docs := []*core.Document{
		{URL: "https://example.com/a", Content: "First document.", Status: core.DocumentStatusCompleted},
		{URL: "https://example.com/b", Content: "Second document.", Status: core.DocumentStatusPending},
		{URL: "https://example.com/c", Content: "Third document.", Status: core.DocumentStatusFailed},
	}
	_, err = sys.DocumentRepository().AddDocuments(ctx, docs...)
	require.NoError(t, err)

	stats, err = sys.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Processing)
}
