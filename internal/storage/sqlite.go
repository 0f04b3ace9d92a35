package storage

import (
	"context"
	"database/sql"

	"github.com/archiai/studio/internal/config"
	"github.com/archiai/studio/internal/db"
)

// SQLite stores blobs in the snapshots table of the local studio.db.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an already initialized database (see db.Init).
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

// OpenSQLite initializes baseDir/studio.db and applies pool limits from cfg.
func OpenSQLite(baseDir string, cfg *config.Config) (*SQLite, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(database, cfg)
	return &SQLite{db: database}, nil
}

// Get returns the blob stored under key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, found, err := db.GetSnapshot(ctx, s.db, key)
	if err != nil || !found {
		return nil, false, err
	}
	return []byte(data), true, nil
}

// Set upserts the blob stored under key.
func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	return db.PutSnapshot(ctx, s.db, key, string(value))
}

// Remove deletes key.
func (s *SQLite) Remove(ctx context.Context, key string) error {
	return db.DeleteSnapshot(ctx, s.db, key)
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database for inspection commands.
func (s *SQLite) DB() *sql.DB {
	return s.db
}
