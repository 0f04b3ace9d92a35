// Package app wires the configured storage backend to one Project Store and
// one UI Preference Store.
package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/archiai/studio/internal/config"
	"github.com/archiai/studio/internal/db"
	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/ops"
	"github.com/archiai/studio/internal/persist"
	"github.com/archiai/studio/internal/project"
	"github.com/archiai/studio/internal/storage"
	"github.com/archiai/studio/internal/ui"
)

// App holds the process-wide store instances.
type App struct {
	Config   *config.Config
	BaseDir  string
	Storage  storage.Storage
	Projects *project.Store
	UI       *ui.Store
	Logger   *slog.Logger
}

// Open opens the storage backend selected by cfg and rehydrates both stores.
func Open(ctx context.Context, cfg *config.Config, baseDir string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kv, err := storage.Open(ctx, cfg, baseDir)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, baseDir, kv, logger)
}

// New builds an App over an already opened backend. The App owns kv.
func New(ctx context.Context, cfg *config.Config, baseDir string, kv storage.Storage, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	projects, err := project.Open(ctx, kv,
		project.WithLogger(logger.With("store", "project")),
		project.WithStrictIDs(cfg.StrictProjectIDs),
	)
	if err != nil {
		kv.Close()
		return nil, err
	}

	prefs, err := ui.Open(ctx, kv, ui.WithLogger(logger.With("store", "ui")))
	if err != nil {
		kv.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		BaseDir:  baseDir,
		Storage:  kv,
		Projects: projects,
		UI:       prefs,
		Logger:   logger,
	}, nil
}

// ExportsDir is the default directory for project export files.
func (a *App) ExportsDir() string {
	return ops.ExportsDir(a.BaseDir)
}

// Reset removes both persisted snapshots. In-memory state is untouched.
func (a *App) Reset(ctx context.Context) error {
	if err := a.Projects.ClearStorage(ctx); err != nil {
		return err
	}
	return a.UI.ClearStorage(ctx)
}

// Close releases the storage backend.
func (a *App) Close() error {
	return a.Storage.Close()
}

// SnapshotInfo describes one persisted snapshot.
type SnapshotInfo struct {
	Key       string `json:"key"`
	Found     bool   `json:"found"`
	Bytes     int    `json:"bytes,omitempty"`
	Version   *int   `json:"version,omitempty"`
	Corrupt   bool   `json:"corrupt,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// Snapshots reports what the backend holds for both store keys. The
// sqlite backend also reports when each snapshot was last written.
func (a *App) Snapshots(ctx context.Context) ([]SnapshotInfo, error) {
	updated := map[string]int64{}
	if sq, ok := a.Storage.(*storage.SQLite); ok {
		rows, err := db.ListSnapshots(ctx, sq.DB())
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			updated[r.Key] = r.UpdatedAt
		}
	}

	keys := []string{project.StorageKey, ui.StorageKey}
	infos := make([]SnapshotInfo, 0, len(keys))
	for _, key := range keys {
		raw, found, err := a.Storage.Get(ctx, key)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		info := SnapshotInfo{Key: key, Found: found, UpdatedAt: updated[key]}
		if found {
			info.Bytes = len(raw)
			var env persist.Envelope
			if err := json.Unmarshal(raw, &env); err != nil || len(env.State) == 0 || string(env.State) == "null" {
				info.Corrupt = true
			} else {
				v := env.Version
				info.Version = &v
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}
