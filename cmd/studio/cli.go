package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/archiai/studio/internal/app"
	"github.com/archiai/studio/internal/backup"
	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/ops"
	"github.com/archiai/studio/internal/project"
	"github.com/archiai/studio/internal/ui"
	"github.com/archiai/studio/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// a may be nil when only help or version output is needed.
func newCLIApp(a *app.App) *cli.App {
	cliApp := &cli.App{
		Name:    "studio",
		Usage:   "Project and UI preference stores for the architecture studio",
		Version: Version,
		Commands: []*cli.Command{
			projectCmd(a),
			uiCmd(a),
			snapshotsCmd(a),
			resetCmd(a),
			serveCmd(a),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

func projectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Project id"},
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Project name"},
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Building type"},
		&cli.Float64Flag{Name: "surface-area", Usage: "Surface area in square meters"},
		&cli.StringFlag{Name: "address", Usage: "Street address"},
		&cli.StringFlag{Name: "postal-code", Usage: "Postal code"},
		&cli.StringFlag{Name: "country", Usage: "Country"},
		&cli.StringFlag{Name: "requirements", Usage: "Requirements as a JSON object"},
		&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Status label"},
	}
}

// projectCmd groups the project store commands.
func projectCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Manage the project list and the current project",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all projects",
				Action: func(c *cli.Context) error {
					st := a.Projects.State()
					return outputJSON(c, map[string]any{
						"projects": st.Projects,
						"count":    len(st.Projects),
					})
				},
			},
			{
				Name:  "current",
				Usage: "Show the current project",
				Action: func(c *cli.Context) error {
					return outputJSON(c, map[string]any{"currentProject": a.Projects.State().CurrentProject})
				},
			},
			{
				Name:  "add",
				Usage: "Append a project (id and createdAt are generated when omitted)",
				Flags: projectFlags(),
				Action: func(c *cli.Context) error {
					var p project.Project
					p.ID = c.String("id")
					p.Name = c.String("name")
					p.Type = c.String("type")
					p.SurfaceArea = c.Float64("surface-area")
					p.Status = c.String("status")
					p.Location = project.Location{Address: c.String("address")}
					if v := c.String("postal-code"); v != "" {
						p.Location.PostalCode = &v
					}
					if v := c.String("country"); v != "" {
						p.Location.Country = &v
					}
					if raw := c.String("requirements"); raw != "" {
						reqs, err := parseObject(raw)
						if err != nil {
							return outputError(err)
						}
						p.Requirements = reqs
					}

					p = project.FillDefaults(p, time.Now())
					if err := a.Projects.AddProject(c.Context, p); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"project": p})
				},
			},
			{
				Name:      "update",
				Usage:     "Merge the given fields into every project with the id",
				ArgsUsage: "<id>",
				Flags:     projectFlags(),
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					patch, err := patchFromFlags(c)
					if err != nil {
						return outputError(err)
					}
					if patch.IsEmpty() {
						return outputError(errors.NewInvalidRequest("set at least one field to update"))
					}
					if _, ok := a.Projects.Find(id); !ok {
						return outputError(errors.NewNotFound("project", id))
					}

					if err := a.Projects.UpdateProject(c.Context, id, patch); err != nil {
						return outputError(err)
					}
					newID := id
					if patch.ID != nil {
						newID = *patch.ID
					}
					p, _ := a.Projects.Find(newID)
					return outputJSON(c, map[string]any{"project": p})
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove every project with the id",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					_, existed := a.Projects.Find(id)
					if err := a.Projects.DeleteProject(c.Context, id); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"id": id, "deleted": existed})
				},
			},
			{
				Name:      "select",
				Usage:     "Make a project current",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "clear", Usage: "Clear the current project instead"},
				},
				Action: func(c *cli.Context) error {
					if c.Bool("clear") {
						if err := a.Projects.SetCurrentProject(c.Context, nil); err != nil {
							return outputError(err)
						}
						return outputJSON(c, map[string]any{"currentProject": nil})
					}

					id, err := requireArg(c, "id")
					if err != nil {
						return outputError(err)
					}
					p, ok := a.Projects.Find(id)
					if !ok {
						return outputError(errors.NewNotFound("project", id))
					}
					if err := a.Projects.SetCurrentProject(c.Context, &p); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"currentProject": p})
				},
			},
			{
				Name:  "replace",
				Usage: "Replace the whole list with a JSON array (from --file or stdin)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON file holding the project array"},
				},
				Action: func(c *cli.Context) error {
					data, err := readInput(c.String("file"))
					if err != nil {
						return outputError(err)
					}
					var list []project.Project
					if err := json.Unmarshal(data, &list); err != nil {
						return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid project array: %v", err)))
					}
					if list == nil {
						return outputError(errors.NewInvalidRequest("expected a JSON array of projects"))
					}

					if err := a.Projects.SetProjects(c.Context, list); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"count": len(list)})
				},
			},
			{
				Name:  "export",
				Usage: "Export projects to a JSONL file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.archiai/exports/projects-<timestamp>.jsonl)"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.Export(c.Context, a.Projects, a.Config, ops.ExportInput{
						Path:       c.String("path"),
						ExportsDir: a.ExportsDir(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "import",
				Usage: "Import projects from a JSONL file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "append", Usage: "Import mode: append|replace"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.Import(c.Context, a.Projects, a.Config, ops.ImportInput{
						Path:       c.String("path"),
						Mode:       ops.ImportMode(c.String("mode")),
						ExportsDir: a.ExportsDir(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}

// uiCmd groups the UI preference commands. Notifications live only in a
// running server, so they are not exposed here.
func uiCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Show or change UI preferences",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show sidebar and theme preferences",
				Action: func(c *cli.Context) error {
					st := a.UI.State()
					return outputJSON(c, map[string]any{"sidebarOpen": st.SidebarOpen, "theme": st.Theme})
				},
			},
			{
				Name:  "toggle-sidebar",
				Usage: "Flip sidebar visibility",
				Action: func(c *cli.Context) error {
					if err := a.UI.ToggleSidebar(c.Context); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"sidebarOpen": a.UI.State().SidebarOpen})
				},
			},
			{
				Name:      "sidebar",
				Usage:     "Open or close the sidebar",
				ArgsUsage: "<open|closed>",
				Action: func(c *cli.Context) error {
					arg, err := requireArg(c, "open|closed")
					if err != nil {
						return outputError(err)
					}
					open, err := parseSidebar(arg)
					if err != nil {
						return outputError(err)
					}
					if err := a.UI.SetSidebarOpen(c.Context, open); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"sidebarOpen": open})
				},
			},
			{
				Name:      "theme",
				Usage:     "Set the color theme",
				ArgsUsage: "<light|dark|system>",
				Action: func(c *cli.Context) error {
					arg, err := requireArg(c, "theme")
					if err != nil {
						return outputError(err)
					}
					theme, err := ui.ParseTheme(arg)
					if err != nil {
						return outputError(err)
					}
					if err := a.UI.SetTheme(c.Context, theme); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"theme": theme})
				},
			},
		},
	}
}

// snapshotsCmd reports what the backend holds for each store.
func snapshotsCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "snapshots",
		Usage: "Show the persisted snapshots and their versions",
		Action: func(c *cli.Context) error {
			infos, err := a.Snapshots(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{
				"backend":   a.Config.StorageBackend,
				"snapshots": infos,
			})
		},
	}
}

// resetCmd removes both persisted snapshots.
func resetCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Delete the persisted project and UI snapshots",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the reset"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("reset deletes all saved projects; pass --yes to confirm"))
			}
			if err := a.Reset(c.Context); err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"reset": true})
		},
	}
}

// serveCmd runs the HTTP API until interrupted.
func serveCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the stores over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 7788, Usage: "Port to listen on"},
			&cli.StringSliceFlag{Name: "origin", Usage: "Allowed CORS origin (repeatable)"},
			&cli.Float64Flag{Name: "rate-limit", Value: 20, Usage: "Sustained API requests per second (0 disables)"},
			&cli.IntFlag{Name: "burst", Usage: "API request burst (default: twice the rate)"},
		},
		Action: func(c *cli.Context) error {
			if spec := a.Config.BackupSchedule; spec != "" {
				sched, err := backup.New(a.Projects, a.Config, a.ExportsDir(), spec, a.Logger)
				if err != nil {
					return outputError(err)
				}
				sched.Start()
				defer sched.Stop()
			}

			srv := web.NewServer(a, web.Options{
				Bind:           c.String("bind"),
				Port:           c.Int("port"),
				Version:        Version,
				AllowedOrigins: c.StringSlice("origin"),
				RateLimit:      c.Float64("rate-limit"),
				Burst:          c.Int("burst"),
			})
			return web.Run(srv, a.Logger)
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func requireArg(c *cli.Context, name string) (string, error) {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return "", errors.NewInvalidRequest(name + " argument is required")
	}
	return arg, nil
}

// patchFromFlags builds a patch from the flags the user actually set.
func patchFromFlags(c *cli.Context) (project.Patch, error) {
	var patch project.Patch
	str := func(name string) *string {
		if !c.IsSet(name) {
			return nil
		}
		v := c.String(name)
		return &v
	}

	patch.ID = str("id")
	patch.Name = str("name")
	patch.Type = str("type")
	patch.Status = str("status")
	if c.IsSet("surface-area") {
		v := c.Float64("surface-area")
		patch.SurfaceArea = &v
	}
	if c.IsSet("address") || c.IsSet("postal-code") || c.IsSet("country") {
		patch.Location = &project.Location{
			Address:    c.String("address"),
			PostalCode: str("postal-code"),
			Country:    str("country"),
		}
	}
	if c.IsSet("requirements") {
		reqs, err := parseObject(c.String("requirements"))
		if err != nil {
			return patch, err
		}
		patch.Requirements = reqs
	}
	return patch, nil
}

func parseObject(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return nil, errors.NewInvalidRequest("requirements must be a JSON object")
	}
	return obj, nil
}

func parseSidebar(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "open":
		return true, nil
	case "closed", "close":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.NewInvalidRequest(fmt.Sprintf("sidebar state must be open or closed (got %q)", s))
	}
	return b, nil
}

// readInput reads path, or stdin when path is empty and stdin is piped.
func readInput(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewFileNotFound(path)
			}
			return nil, errors.NewInternal(err)
		}
		return data, nil
	}
	if !stdinHasData() {
		return nil, errors.NewInvalidRequest("pass --file or pipe JSON via stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
