package localstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmart/storefront/internal/infrastructure/config"
)

func TestFactory_CreateStore_Memory(t *testing.T) {
	factory := NewFactory(config.StorageConfig{Backend: "memory"})

	store, err := factory.CreateStore()
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestFactory_CreateStore_File(t *testing.T) {
	factory := NewFactory(config.StorageConfig{Backend: "file", Dir: t.TempDir()})

	store, err := factory.CreateStore()
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)
}

func TestFactory_CreateStore_UnknownBackend(t *testing.T) {
	factory := NewFactory(config.StorageConfig{Backend: "cassandra"})

	_, err := factory.CreateStore()
	assert.Error(t, err)
}

func TestFactory_CreateStore_RedisFallsBackToFile(t *testing.T) {
	// Port 1 is never a Redis server; the dial fails and the factory
	// must fall back to the file backend.
	factory := NewFactory(config.StorageConfig{
		Backend: "redis",
		Dir:     t.TempDir(),
		Redis:   config.RedisConfig{Host: "127.0.0.1", Port: 1},
	})

	store, err := factory.CreateStore()
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)
}

func TestFactory_CreateStore_RedisNoFallback(t *testing.T) {
	factory := NewFactory(config.StorageConfig{
		Backend: "redis",
		Dir:     t.TempDir(),
		Redis:   config.RedisConfig{Host: "127.0.0.1", Port: 1},
	}, WithFileFallback(false))

	_, err := factory.CreateStore()
	assert.Error(t, err)
}
