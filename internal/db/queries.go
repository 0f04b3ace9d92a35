package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/archiai/studio/internal/errors"
)

// Snapshot is one stored row of the snapshots table.
type Snapshot struct {
	Key       string
	Data      string
	UpdatedAt int64
}

// GetSnapshot retrieves the blob stored under key.
// found is false when no row exists.
func GetSnapshot(ctx context.Context, db *sql.DB, key string) (data string, found bool, err error) {
	row := db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, key)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, errors.NewInternal(err)
	}
	return data, true, nil
}

// PutSnapshot inserts or replaces the blob stored under key.
func PutSnapshot(ctx context.Context, db *sql.DB, key, data string) error {
	query := `
		INSERT INTO snapshots (key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, data, time.Now().Unix()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteSnapshot removes the row stored under key.
// Deleting a missing key is not an error.
func DeleteSnapshot(ctx context.Context, db *sql.DB, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListSnapshots returns every stored snapshot ordered by key.
func ListSnapshots(ctx context.Context, db *sql.DB) ([]Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, data, updated_at FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Key, &s.Data, &s.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return snapshots, nil
}
