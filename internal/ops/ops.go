// Package ops implements file-level operations over the stores: exporting
// the project list to a JSONL file and importing it back.
package ops

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/archiai/studio/internal/errors"
)

// ExportSchemaVersion is written in every export header.
const ExportSchemaVersion = "1.0"

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	StudioExport     bool   `json:"_studio_export"`
	SchemaVersion    string `json:"schema_version"`
	ExportedAt       int64  `json:"exported_at"`
	CurrentProjectID string `json:"current_project_id,omitempty"`
}

// ExportsDir returns baseDir/exports, the default location for export files.
func ExportsDir(baseDir string) string {
	return filepath.Join(baseDir, "exports")
}

// DefaultBaseDir returns ~/.archiai.
func DefaultBaseDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, ".archiai"), nil
}
