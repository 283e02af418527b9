package localstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/bookmart/storefront/internal/infrastructure/config"
)

// Factory creates blob stores based on configuration
type Factory struct {
	cfg               config.StorageConfig
	logger            *zap.Logger
	allowFileFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithFileFallback controls whether to fall back to the file backend when
// Redis is unavailable. Default is true (allow fallback).
func WithFileFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowFileFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.StorageConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:               cfg,
		logger:            zap.NewNop(),
		allowFileFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore creates the blob store named by the configured backend.
// A redis backend that cannot be reached falls back to the file backend
// when fallback is allowed, so an offline cache host never blocks the
// guest cart.
func (f *Factory) CreateStore() (BlobStore, error) {
	switch f.cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil

	case "file":
		return NewFileStore(f.cfg.Dir)

	case "redis":
		store, err := NewRedisStore(f.cfg.Redis)
		if err == nil {
			return store, nil
		}
		if !f.allowFileFallback {
			return nil, err
		}
		f.logger.Warn("Redis unavailable, falling back to file store",
			zap.String("addr", f.cfg.Redis.Addr()),
			zap.Error(err),
		)
		return NewFileStore(f.cfg.Dir)

	default:
		return nil, fmt.Errorf("localstore: unknown storage backend %q", f.cfg.Backend)
	}
}
