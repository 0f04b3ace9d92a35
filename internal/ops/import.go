package ops

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/archiai/studio/internal/config"
	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/project"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 << 20

// ImportMode controls how imported projects combine with the existing list.
type ImportMode string

const (
	ImportModeAppend  ImportMode = "append"  // add after the existing projects
	ImportModeReplace ImportMode = "replace" // replace the list and restore the exported selection
)

// ProjectWriter is the part of the Project Store Import needs.
type ProjectWriter interface {
	ProjectReader
	AddProject(ctx context.Context, p project.Project) error
	SetProjects(ctx context.Context, list []project.Project) error
	SetCurrentProject(ctx context.Context, p *project.Project) error
}

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path       string     // required
	Mode       ImportMode // default: append
	ExportsDir string     // required; the default allowed directory
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes a line that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importRecord struct {
	line    int
	project project.Project
}

// Import reads a JSONL export and feeds its projects to the store.
// Lines that cannot be parsed are skipped and reported in the output.
func Import(ctx context.Context, projects ProjectWriter, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeAppend
	}
	if input.Mode != ImportModeAppend && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: append, replace")
	}
	if input.ExportsDir == "" {
		return nil, errors.NewInvalidRequest("exports directory is required")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg, input.ExportsDir); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if errors.Is(err, errors.ErrFileNotFound) || errors.Is(err, errors.ErrInvalidRequest) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	header, records, parseErrors, err := parseExportFile(file)
	if err != nil {
		return nil, err
	}

	out := &ImportOutput{
		Skipped: len(parseErrors),
		Errors:  parseErrors,
	}

	switch input.Mode {
	case ImportModeReplace:
		list := make([]project.Project, len(records))
		for i, r := range records {
			list[i] = r.project
		}
		if err := projects.SetProjects(ctx, list); err != nil {
			return nil, err
		}
		out.Imported = len(list)

		var selected *project.Project
		if header.CurrentProjectID != "" {
			for i := range list {
				if list[i].ID == header.CurrentProjectID {
					selected = &list[i]
					break
				}
			}
		}
		if err := projects.SetCurrentProject(ctx, selected); err != nil {
			return nil, err
		}

	case ImportModeAppend:
		for _, r := range records {
			if ctx.Err() != nil {
				return nil, errors.NewCancelled("import")
			}
			err := projects.AddProject(ctx, r.project)
			if errors.Is(err, errors.ErrDuplicateID) {
				out.Skipped++
				out.Errors = append(out.Errors, ImportError{
					Line:    r.line,
					ID:      r.project.ID,
					Code:    string(errors.ErrDuplicateID),
					Message: err.Error(),
				})
				continue
			}
			if err != nil {
				return nil, err
			}
			out.Imported++
		}
	}

	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	return out, nil
}

// parseExportFile splits an export into its header and project records.
// A missing header is tolerated; a header on any line but the first is not.
func parseExportFile(r io.Reader) (ExportHeader, []importRecord, []ImportError, error) {
	var (
		header      ExportHeader
		records     []importRecord
		parseErrors []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var probe struct {
			StudioExport bool `json:"_studio_export"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if probe.StudioExport {
			if lineNum != 1 {
				parseErrors = append(parseErrors, ImportError{
					Line:    lineNum,
					Code:    "INVALID_RECORD",
					Message: "export header must be the first line",
				})
				continue
			}
			if err := json.Unmarshal(line, &header); err != nil {
				return header, nil, nil, errors.NewInvalidRequest(fmt.Sprintf("invalid export header: %v", err))
			}
			if header.SchemaVersion != ExportSchemaVersion {
				return header, nil, nil, errors.NewInvalidRequest(
					fmt.Sprintf("unsupported export schema_version %q (want %q)", header.SchemaVersion, ExportSchemaVersion))
			}
			continue
		}

		var p project.Project
		if err := json.Unmarshal(line, &p); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid project: %v", err),
			})
			continue
		}
		if p.ID == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing id field",
			})
			continue
		}

		records = append(records, importRecord{line: lineNum, project: p})
	}

	if err := scanner.Err(); err != nil {
		return header, nil, nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}

	return header, records, parseErrors, nil
}
