package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/archiai/studio/internal/config"
	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/project"
	"github.com/archiai/studio/internal/storage"
)

func newProjectStore(t *testing.T, opts ...project.Option) *project.Store {
	t.Helper()
	s, err := project.Open(context.Background(), storage.NewMemory(), opts...)
	if err != nil {
		t.Fatalf("project.Open failed: %v", err)
	}
	return s
}

func seedProjects(t *testing.T, s *project.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		p := project.Project{
			ID:           id,
			Name:         "Project " + id,
			Type:         "house",
			SurfaceArea:  90,
			Location:     project.Location{Address: "1 Rue " + id},
			Requirements: map[string]any{"floors": 2.0},
			Status:       "draft",
			CreatedAt:    "2026-05-01T10:00:00Z",
		}
		if err := s.AddProject(context.Background(), p); err != nil {
			t.Fatalf("AddProject(%s) failed: %v", id, err)
		}
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestExport_HappyPath(t *testing.T) {
	ctx := context.Background()
	exportsDir := t.TempDir()
	s := newProjectStore(t)
	seedProjects(t, s, "p1", "p2")
	cur := s.State().Projects[1]
	if err := s.SetCurrentProject(ctx, &cur); err != nil {
		t.Fatalf("SetCurrentProject failed: %v", err)
	}

	exportPath := filepath.Join(exportsDir, "projects.jsonl")
	out, err := Export(ctx, s, config.DefaultConfig(), ExportInput{Path: exportPath, ExportsDir: exportsDir})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Path != exportPath {
		t.Errorf("Path = %q, want %q", out.Path, exportPath)
	}
	if out.Count != 2 {
		t.Errorf("Count = %d, want 2", out.Count)
	}
	if out.ExportedAt == 0 {
		t.Error("ExportedAt should be set")
	}

	lines := readLines(t, exportPath)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header + 2 projects)", len(lines))
	}

	var header ExportHeader
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		t.Fatalf("header is not JSON: %v", err)
	}
	if !header.StudioExport || header.SchemaVersion != ExportSchemaVersion {
		t.Errorf("unexpected header: %+v", header)
	}
	if header.CurrentProjectID != "p2" {
		t.Errorf("CurrentProjectID = %q, want %q", header.CurrentProjectID, "p2")
	}

	var first project.Project
	if err := json.Unmarshal([]byte(lines[1]), &first); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if first.ID != "p1" || first.Location.Address != "1 Rue p1" {
		t.Errorf("unexpected first record: %+v", first)
	}
}

func TestExport_DefaultPath(t *testing.T) {
	exportsDir := filepath.Join(t.TempDir(), "exports")
	s := newProjectStore(t)

	out, err := Export(context.Background(), s, config.DefaultConfig(), ExportInput{ExportsDir: exportsDir})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if filepath.Dir(out.Path) != exportsDir {
		t.Errorf("default path %q not in %q", out.Path, exportsDir)
	}
	if !strings.HasPrefix(filepath.Base(out.Path), "projects-") {
		t.Errorf("unexpected default file name %q", filepath.Base(out.Path))
	}
	if out.Count != 0 {
		t.Errorf("Count = %d, want 0", out.Count)
	}
	if lines := readLines(t, out.Path); len(lines) != 1 {
		t.Errorf("got %d lines, want header only", len(lines))
	}
}

func TestExport_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	exportsDir := t.TempDir()
	s := newProjectStore(t)
	seedProjects(t, s, "p1")
	exportPath := filepath.Join(exportsDir, "out.jsonl")
	if err := os.WriteFile(exportPath, []byte("old\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Export(context.Background(), s, config.DefaultConfig(), ExportInput{Path: exportPath, ExportsDir: exportsDir}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	entries, err := os.ReadDir(exportsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the export file, found %d entries", len(entries))
	}
	if lines := readLines(t, exportPath); len(lines) != 2 {
		t.Errorf("got %d lines, want 2", len(lines))
	}
}

func TestExport_RejectsPathOutsideExportsDir(t *testing.T) {
	s := newProjectStore(t)

	_, err := Export(context.Background(), s, config.DefaultConfig(), ExportInput{
		Path:       filepath.Join(t.TempDir(), "out.jsonl"),
		ExportsDir: t.TempDir(),
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got: %v", err)
	}
}

func TestExport_Cancelled(t *testing.T) {
	exportsDir := t.TempDir()
	s := newProjectStore(t)
	seedProjects(t, s, "p1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exportPath := filepath.Join(exportsDir, "out.jsonl")
	_, err := Export(ctx, s, config.DefaultConfig(), ExportInput{Path: exportPath, ExportsDir: exportsDir})
	if !errors.Is(err, errors.ErrCancelled) {
		t.Errorf("expected CANCELLED, got: %v", err)
	}
	if _, statErr := os.Stat(exportPath); !os.IsNotExist(statErr) {
		t.Error("cancelled export must not leave a file behind")
	}
}
