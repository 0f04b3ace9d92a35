package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiai/studio/internal/config"
	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/project"
	"github.com/archiai/studio/internal/storage"
)

func newStore(t *testing.T) *project.Store {
	t.Helper()
	s, err := project.Open(context.Background(), storage.NewMemory())
	require.NoError(t, err)
	require.NoError(t, s.AddProject(context.Background(), project.Project{ID: "p1", Name: "One"}))
	return s
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0600))
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(newStore(t), config.DefaultConfig(), t.TempDir(), "every tuesday", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestNew_AcceptsDescriptors(t *testing.T) {
	for _, spec := range []string{"@daily", "0 3 * * *", "@every 6h"} {
		s, err := New(newStore(t), config.DefaultConfig(), t.TempDir(), spec, nil)
		require.NoError(t, err, spec)
		s.Start()
		s.Stop()
	}
}

func TestRunOnce_WritesExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	s, err := New(newStore(t), config.DefaultConfig(), dir, "@daily", nil)
	require.NoError(t, err)

	out, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, dir, filepath.Dir(out.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(out.Path), filePrefix), out.Path)
	assert.FileExists(t, out.Path)
}

func TestRunOnce_PrunesOldBackups(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "backup-projects-2020-01-01T000000.jsonl")
	touch(t, dir, "backup-projects-2020-01-02T000000.jsonl")
	touch(t, dir, "backup-projects-2020-01-03T000000.jsonl")

	cfg := config.DefaultConfig()
	cfg.BackupKeep = 2
	s, err := New(newStore(t), cfg, dir, "@daily", nil)
	require.NoError(t, err)

	out, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"backup-projects-2020-01-03T000000.jsonl", filepath.Base(out.Path)}, names)
}

func TestPrune_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "backup-projects-2020-01-01T000000.jsonl")
	touch(t, dir, "backup-projects-2020-01-02T000000.jsonl")
	touch(t, dir, "manual.jsonl")
	touch(t, dir, "backup-projects-notes.txt")

	removed, err := Prune(dir, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"backup-projects-2020-01-01T000000.jsonl"}, removed)
	assert.FileExists(t, filepath.Join(dir, "manual.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "backup-projects-notes.txt"))
}

func TestRunOnce_KeepsManualExports(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "projects-2020-01-01T000000.jsonl")
	touch(t, dir, "projects-2020-01-02T000000.jsonl")
	touch(t, dir, "backup-projects-2020-01-01T000000.jsonl")

	cfg := config.DefaultConfig()
	cfg.BackupKeep = 1
	s, err := New(newStore(t), cfg, dir, "@daily", nil)
	require.NoError(t, err)

	out, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "projects-2020-01-01T000000.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "projects-2020-01-02T000000.jsonl"))
	assert.NoFileExists(t, filepath.Join(dir, "backup-projects-2020-01-01T000000.jsonl"))
	assert.FileExists(t, out.Path)
}

func TestPrune_NothingToDo(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "backup-projects-2020-01-01T000000.jsonl")

	removed, err := Prune(dir, 3)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
