package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"STOREFRONT_APP_NAME":        os.Getenv("STOREFRONT_APP_NAME"),
		"STOREFRONT_APP_ENV":         os.Getenv("STOREFRONT_APP_ENV"),
		"STOREFRONT_API_BASE_URL":    os.Getenv("STOREFRONT_API_BASE_URL"),
		"STOREFRONT_API_TIMEOUT":     os.Getenv("STOREFRONT_API_TIMEOUT"),
		"STOREFRONT_STORAGE_BACKEND": os.Getenv("STOREFRONT_STORAGE_BACKEND"),
		"STOREFRONT_STORAGE_DIR":     os.Getenv("STOREFRONT_STORAGE_DIR"),
		"STOREFRONT_LOG_LEVEL":       os.Getenv("STOREFRONT_LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "bookmart-storefront", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "http://localhost:8080/api/v1", cfg.API.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.API.Timeout)
		assert.Equal(t, "file", cfg.Storage.Backend)
		assert.Equal(t, ".storefront", cfg.Storage.Dir)
		assert.Equal(t, "localhost", cfg.Storage.Redis.Host)
		assert.Equal(t, 6379, cfg.Storage.Redis.Port)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "console", cfg.Log.Format)
	})

	t.Run("loads values from environment variables with STOREFRONT prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("STOREFRONT_APP_NAME", "test-storefront")
		os.Setenv("STOREFRONT_API_BASE_URL", "https://shop.example.com/api/v1")
		os.Setenv("STOREFRONT_API_TIMEOUT", "30s")
		os.Setenv("STOREFRONT_STORAGE_BACKEND", "memory")
		os.Setenv("STOREFRONT_LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-storefront", cfg.App.Name)
		assert.Equal(t, "https://shop.example.com/api/v1", cfg.API.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.API.Timeout)
		assert.Equal(t, "memory", cfg.Storage.Backend)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("rejects unknown storage backend", func(t *testing.T) {
		clearEnv()
		os.Setenv("STOREFRONT_STORAGE_BACKEND", "cassandra")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects invalid base url", func(t *testing.T) {
		clearEnv()
		os.Setenv("STOREFRONT_API_BASE_URL", "not a url")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects invalid log level", func(t *testing.T) {
		clearEnv()
		os.Setenv("STOREFRONT_LOG_LEVEL", "verbose")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects plain http in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("STOREFRONT_APP_ENV", "production")
		os.Setenv("STOREFRONT_API_BASE_URL", "http://shop.example.com/api/v1")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("accepts https in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("STOREFRONT_APP_ENV", "production")
		os.Setenv("STOREFRONT_API_BASE_URL", "https://shop.example.com/api/v1")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.local", Port: 6380}
	assert.Equal(t, "cache.local:6380", r.Addr())
}
