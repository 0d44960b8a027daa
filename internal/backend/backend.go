// Package backend opens the idea store selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mesh-intelligence/ideas/internal/kv"
	"github.com/mesh-intelligence/ideas/internal/local"
	"github.com/mesh-intelligence/ideas/internal/logger"
	"github.com/mesh-intelligence/ideas/internal/postgres"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// ErrDataDirEmpty is returned when a file-backed backend has no data dir.
var ErrDataDirEmpty = errors.New("data dir must not be empty")

// store is what every backend implementation provides.
type store interface {
	types.IdeaStore
	types.ChangeFeed
	io.Closer
}

// Backend is an open idea store.
type Backend struct {
	name     string
	pageSize int
	store    store
	log      *logger.Logger
}

// Open validates cfg and opens the configured backend. The caller must
// Close the returned Backend.
func Open(ctx context.Context, cfg types.Config, log *logger.Logger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}

	var (
		s   store
		err error
	)
	switch cfg.Backend {
	case types.BackendMemory:
		s = local.New(kv.NewMemStore(), local.WithLogger(log))
	case types.BackendFile:
		s, err = openLocal(cfg.DataDir, log, func(dir string) (kv.Store, error) {
			return kv.NewFileStore(dir)
		})
	case types.BackendSQLite:
		s, err = openLocal(cfg.DataDir, log, func(dir string) (kv.Store, error) {
			return kv.NewSQLiteStore(dir)
		})
	case types.BackendPostgres:
		s, err = openPostgres(ctx, cfg, log)
	}
	if err != nil {
		log.Error(logger.EventStartup, "opening backend failed", logger.Fields("backend", cfg.Backend, "err", err))
		return nil, err
	}

	log.Info(logger.EventStartup, "backend opened", logger.Fields("backend", cfg.Backend, "data_dir", cfg.DataDir))
	return &Backend{name: cfg.Backend, pageSize: cfg.EffectivePageSize(), store: s, log: log}, nil
}

func openLocal(dataDir string, log *logger.Logger, open func(string) (kv.Store, error)) (store, error) {
	if dataDir == "" {
		return nil, ErrDataDirEmpty
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating data dir: %w", types.ErrStorage, err)
	}
	kvs, err := open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	return local.New(kvs, local.WithLogger(log)), nil
}

func openPostgres(ctx context.Context, cfg types.Config, log *logger.Logger) (store, error) {
	s, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.OwnerID, postgres.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Info(logger.EventDBConnection, "connected to postgres",
		logger.Fields("owner_id", cfg.OwnerID, "database_url", cfg.DatabaseURL))
	return s, nil
}

// Name returns the configured backend name.
func (b *Backend) Name() string { return b.name }

// PageSize returns the configured page size.
func (b *Backend) PageSize() int { return b.pageSize }

// Store returns the idea store.
func (b *Backend) Store() types.IdeaStore { return b.store }

// Feed returns the change feed for the store.
func (b *Backend) Feed() types.ChangeFeed { return b.store }

// Close releases the backend.
func (b *Backend) Close() error {
	b.log.Info(logger.EventShutdown, "backend closed", logger.Fields("backend", b.name))
	return b.store.Close()
}
