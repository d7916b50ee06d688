package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, store SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, types.DatasetWorld)
	require.ErrorIs(t, err, types.ErrNotStored)

	var storageErr *types.StorageError
	require.ErrorAs(t, err, &storageErr)

	require.NoError(t, store.Save(ctx, types.DatasetWorld, []byte(`{"cases":1}`)))
	got, err := store.Load(ctx, types.DatasetWorld)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cases":1}`, string(got))

	// A second save fully replaces the first.
	require.NoError(t, store.Save(ctx, types.DatasetWorld, []byte(`{"cases":2}`)))
	got, err = store.Load(ctx, types.DatasetWorld)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cases":2}`, string(got))

	// Datasets are independent.
	_, err = store.Load(ctx, types.DatasetCountries)
	assert.ErrorIs(t, err, types.ErrNotStored)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, testLogger)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "world.json", entries[0].Name())
}

func TestSQLiteStoreMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", testLogger)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "outbreak.sqlite")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, types.DatasetNews, []byte(`[]`)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, testLogger)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, types.DatasetNews)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestMultiStore(t *testing.T) {
	ctx := context.Background()
	first, err := NewFileStore(t.TempDir(), testLogger)
	require.NoError(t, err)
	second, err := NewSQLiteStore(":memory:", testLogger)
	require.NoError(t, err)

	multi := NewMultiStore([]SnapshotStore{first, second}, testLogger)
	defer multi.Close()

	exerciseStore(t, multi)

	// Both backends received the write.
	for _, backend := range []SnapshotStore{first, second} {
		got, err := backend.Load(ctx, types.DatasetWorld)
		require.NoError(t, err, backend.Name())
		assert.JSONEq(t, `{"cases":2}`, string(got))
	}

	// Reads fall through to the next backend.
	require.NoError(t, second.Save(ctx, types.DatasetCountries, []byte(`[]`)))
	got, err := multi.Load(ctx, types.DatasetCountries)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.DefaultConfig().Storage

	store, err := New(cfg, testLogger)
	require.NoError(t, err)
	assert.Nil(t, store, "memory storage has no durable backend")

	cfg.Type = "file"
	cfg.Path = t.TempDir()
	store, err = New(cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "file", store.Name())
	store.Close()

	cfg.Type = "sqlite"
	store, err = New(cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", store.Name())
	store.Close()

	cfg.Type = "cassandra"
	_, err = New(cfg, testLogger)
	var cfgErr *types.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	cfg.Type = "file,cassandra"
	_, err = New(cfg, testLogger)
	assert.ErrorAs(t, err, &cfgErr)

	cfg.Type = "memory,file"
	_, err = New(cfg, testLogger)
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewListBuildsMultiStore(t *testing.T) {
	cfg := config.DefaultConfig().Storage
	cfg.Type = "file, sqlite"
	cfg.Path = t.TempDir()

	store, err := New(cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "multi", store.Name())
	exerciseStore(t, store)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, types.DatasetNews, []byte(`[]`)))
	require.NoError(t, store.Close())

	// Both backends received the write.
	file, err := NewFileStore(cfg.Path, testLogger)
	require.NoError(t, err)
	got, err := file.Load(ctx, types.DatasetNews)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got))

	db, err := NewSQLiteStore(filepath.Join(cfg.Path, "outbreak.sqlite"), testLogger)
	require.NoError(t, err)
	defer db.Close()
	got, err = db.Load(ctx, types.DatasetNews)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got))
}

func TestRedisStore(t *testing.T) {
	uri := os.Getenv("OUTBREAK_TEST_REDIS_URL")
	if testing.Short() || uri == "" {
		t.Skip("set OUTBREAK_TEST_REDIS_URL to run")
	}

	store, err := NewRedisStore(uri, "outbreak-test:"+time.Now().Format("150405.000")+":", 5*time.Second, testLogger)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("OUTBREAK_TEST_MONGO_URI")
	if testing.Short() || uri == "" {
		t.Skip("set OUTBREAK_TEST_MONGO_URI to run")
	}

	collection := "snapshots_test_" + time.Now().Format("150405")
	store, err := NewMongoStore(uri, "outbreak_test", collection, 10*time.Second, testLogger)
	require.NoError(t, err)
	defer func() {
		_ = store.collection.Drop(context.Background())
		store.Close()
	}()

	exerciseStore(t, store)
}
