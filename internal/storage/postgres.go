package storage

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archiai/studio/internal/errors"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS studio_snapshots (
	key        TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores blobs in the studio_snapshots table.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects with dsn and creates the snapshot table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Get returns the blob stored under key.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data string
	err := p.pool.QueryRow(ctx, `SELECT data FROM studio_snapshots WHERE key = $1`, key).Scan(&data)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(fmt.Errorf("failed to get %s: %w", key, err))
	}
	return []byte(data), true, nil
}

// Set upserts the blob stored under key.
func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO studio_snapshots (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, key, string(value))
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to set %s: %w", key, err))
	}
	return nil
}

// Remove deletes key.
func (p *Postgres) Remove(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM studio_snapshots WHERE key = $1`, key); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to delete %s: %w", key, err))
	}
	return nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
