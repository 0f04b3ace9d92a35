// Package backup exports the project list on a cron schedule while the
// HTTP server runs, keeping the newest few files.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/archiai/studio/internal/config"
	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/ops"
)

// filePrefix names scheduled backups. Manual exports use "projects-" and are
// never pruned.
const filePrefix = "backup-projects-"

// Scheduler runs scheduled exports.
type Scheduler struct {
	cron       *cron.Cron
	projects   ops.ProjectReader
	cfg        *config.Config
	exportsDir string
	keep       int
	logger     *slog.Logger
}

// New validates spec (standard five-field cron syntax or a descriptor such
// as "@daily") and prepares a scheduler. Call Start to begin.
func New(projects ops.ProjectReader, cfg *config.Config, exportsDir, spec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	keep := cfg.BackupKeep
	if keep <= 0 {
		keep = 7
	}

	s := &Scheduler{
		cron:       cron.New(),
		projects:   projects,
		cfg:        cfg,
		exportsDir: exportsDir,
		keep:       keep,
		logger:     logger.With("component", "backup"),
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("scheduled backup failed", "error", err)
		}
	}); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid backup_schedule %q: %v", spec, err))
	}
	return s, nil
}

// Start begins running backups in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("backup scheduler started", "dir", s.exportsDir, "keep", s.keep)
}

// Stop halts the schedule and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce writes one export and prunes old ones.
func (s *Scheduler) RunOnce(ctx context.Context) (*ops.ExportOutput, error) {
	path := filepath.Join(s.exportsDir, filePrefix+time.Now().UTC().Format("2006-01-02T150405")+".jsonl")
	out, err := ops.Export(ctx, s.projects, s.cfg, ops.ExportInput{Path: path, ExportsDir: s.exportsDir})
	if err != nil {
		return nil, err
	}
	s.logger.Info("backup written", "path", out.Path, "count", out.Count)

	removed, err := Prune(s.exportsDir, s.keep)
	if err != nil {
		s.logger.Warn("failed to prune old backups", "error", err)
	} else if len(removed) > 0 {
		s.logger.Debug("pruned old backups", "files", removed)
	}
	return out, nil
}

// Prune deletes all but the newest keep backup files in dir. Backups are
// ordered by name, which embeds the export timestamp.
func Prune(dir string, keep int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, filePrefix) && filepath.Ext(name) == ".jsonl" {
			names = append(names, name)
		}
	}
	if len(names) <= keep {
		return nil, nil
	}

	slices.Sort(names)
	stale := names[:len(names)-keep]
	removed := make([]string, 0, len(stale))
	for _, name := range stale {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}
