// Package storage is the key-value facility store snapshots are written to.
// Values are opaque byte blobs addressed by a fixed string key
// ("project-storage", "ui-storage").
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archiai/studio/internal/config"
)

// Storage reads and writes opaque blobs by key.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the blob stored under key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous blob.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// Open builds the backend selected by cfg.StorageBackend.
// baseDir is where the sqlite file lives.
func Open(ctx context.Context, cfg *config.Config, baseDir string) (Storage, error) {
	backend := cfg.StorageBackend
	if backend == "" {
		backend = config.BackendSQLite
	}
	slog.Debug("opening storage", "backend", backend)

	var (
		s   Storage
		err error
	)
	switch backend {
	case config.BackendSQLite:
		s, err = OpenSQLite(baseDir, cfg)
	case config.BackendRedis:
		s, err = OpenRedis(ctx, cfg)
	case config.BackendPostgres:
		s, err = OpenPostgres(ctx, cfg.PostgresDSN)
	case config.BackendMemory:
		s = NewMemory()
	default:
		err = fmt.Errorf("unknown storage backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
