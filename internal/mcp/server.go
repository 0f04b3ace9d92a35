// Package mcp exposes the studio stores as MCP tools over stdio.
package mcp

import (
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/archiai/studio/internal/app"
)

// KnownTypes lists the tool groups that can be disabled as a whole.
var KnownTypes = []string{"project", "ui", "notification"}

type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"project_list": {
		def:     projectListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectList },
	},
	"project_current": {
		def:     projectCurrentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectCurrent },
	},
	"project_add": {
		def:     projectAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectAdd },
	},
	"project_update": {
		def:     projectUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectUpdate },
	},
	"project_delete": {
		def:     projectDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectDelete },
	},
	"project_select": {
		def:     projectSelectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectSelect },
	},
	"project_replace": {
		def:     projectReplaceToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectReplace },
	},
	"project_set_status": {
		def:     projectSetStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectSetStatus },
	},
	"project_export": {
		def:     projectExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectExport },
	},
	"project_import": {
		def:     projectImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectImport },
	},
	"ui_get": {
		def:     uiGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUIGet },
	},
	"ui_set_theme": {
		def:     uiSetThemeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUISetTheme },
	},
	"ui_set_sidebar": {
		def:     uiSetSidebarToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUISetSidebar },
	},
	"ui_toggle_sidebar": {
		def:     uiToggleSidebarToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUIToggleSidebar },
	},
	"ui_set_loading": {
		def:     uiSetLoadingToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUISetLoading },
	},
	"notification_add": {
		def:     notificationAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotificationAdd },
	},
	"notification_remove": {
		def:     notificationRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotificationRemove },
	},
	"notification_clear": {
		def:     notificationClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotificationClear },
	},
	"notification_mark_read": {
		def:     notificationMarkReadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotificationMarkRead },
	},
}

// AllToolNames returns every registered tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns the names that are not known tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns the names that are not known tool groups.
func ValidateDisabledTypes(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(KnownTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool returns the group of a tool ("ui_set_theme" → "ui").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given groups.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if slices.Contains(types, GetTypeForTool(name)) {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server with the store tools registered.
// Tools named in cfg.DisabledTools or belonging to cfg.DisabledTypes are
// left out.
func NewServer(a *app.App, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"studio",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(a)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(a.Config.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range a.Config.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the MCP tools on stdin/stdout until the client disconnects.
func Run(a *app.App, version string) error {
	return server.ServeStdio(NewServer(a, version))
}
