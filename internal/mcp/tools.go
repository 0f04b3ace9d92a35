package mcp

import "github.com/mark3labs/mcp-go/mcp"

const projectSchemaHint = "Project object: id, name, type, surfaceArea, location {address, postalCode?, country?}, requirements (object), status, createdAt, designs? {2d, 3d, structural, mep}, portfolio?"

var projectListToolDef = mcp.NewTool("project_list",
	mcp.WithDescription("List all projects in display order."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var projectCurrentToolDef = mcp.NewTool("project_current",
	mcp.WithDescription("Return the currently selected project, or null."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var projectAddToolDef = mcp.NewTool("project_add",
	mcp.WithDescription("Append a project to the list. A missing id is generated and a missing createdAt is set to now. The new project is not selected."),
	mcp.WithObject("project", mcp.Required(), mcp.Description(projectSchemaHint)),
)

var projectUpdateToolDef = mcp.NewTool("project_update",
	mcp.WithDescription("Shallow-merge fields onto every project with the given id (and onto the selection if it has that id). Nested objects such as location are replaced whole. Unknown ids are a no-op."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Project id")),
	mcp.WithObject("patch", mcp.Required(), mcp.Description("Fields to overwrite. "+projectSchemaHint)),
)

var projectDeleteToolDef = mcp.NewTool("project_delete",
	mcp.WithDescription("Delete every project with the given id. Clears the selection if it has that id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Project id")),
	mcp.WithDestructiveHintAnnotation(true),
)

var projectSelectToolDef = mcp.NewTool("project_select",
	mcp.WithDescription("Select the project with the given id. Omit id to clear the selection."),
	mcp.WithString("id", mcp.Description("Project id; must be in the list")),
)

var projectReplaceToolDef = mcp.NewTool("project_replace",
	mcp.WithDescription("Replace the whole project list. The selection is not changed."),
	mcp.WithArray("projects", mcp.Required(), mcp.Description("New list. "+projectSchemaHint), mcp.Items(map[string]any{"type": "object"})),
	mcp.WithDestructiveHintAnnotation(true),
)

var projectSetStatusToolDef = mcp.NewTool("project_set_status",
	mcp.WithDescription("Set the project store's transient loading flag and error message. Neither is persisted."),
	mcp.WithBoolean("loading", mcp.Description("Loading flag; omitted leaves it unchanged")),
	mcp.WithString("error", mcp.Description("Error message; empty string clears it, omitted leaves it unchanged")),
)

var projectExportToolDef = mcp.NewTool("project_export",
	mcp.WithDescription("Export the project list to a JSONL file."),
	mcp.WithString("path", mcp.Description("Destination .jsonl path; default is a timestamped file in ~/.archiai/exports")),
)

var projectImportToolDef = mcp.NewTool("project_import",
	mcp.WithDescription("Import projects from a JSONL export."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl path")),
	mcp.WithString("mode", mcp.Description("append (default) or replace"), mcp.Enum("append", "replace")),
)

var uiGetToolDef = mcp.NewTool("ui_get",
	mcp.WithDescription("Return sidebar visibility, theme, loading flag and notifications."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var uiSetThemeToolDef = mcp.NewTool("ui_set_theme",
	mcp.WithDescription("Set the color theme."),
	mcp.WithString("theme", mcp.Required(), mcp.Enum("light", "dark", "system")),
)

var uiSetSidebarToolDef = mcp.NewTool("ui_set_sidebar",
	mcp.WithDescription("Show or hide the sidebar."),
	mcp.WithBoolean("open", mcp.Required()),
)

var uiToggleSidebarToolDef = mcp.NewTool("ui_toggle_sidebar",
	mcp.WithDescription("Flip sidebar visibility."),
)

var uiSetLoadingToolDef = mcp.NewTool("ui_set_loading",
	mcp.WithDescription("Set the global loading flag. Not persisted."),
	mcp.WithBoolean("loading", mcp.Required()),
)

var notificationAddToolDef = mcp.NewTool("notification_add",
	mcp.WithDescription("Append an unread notification. Returns it with its generated id and timestamp."),
	mcp.WithString("type", mcp.Required(), mcp.Enum("success", "error", "warning", "info")),
	mcp.WithString("title", mcp.Required()),
	mcp.WithString("message", mcp.Description("Body text; markdown is allowed")),
)

var notificationRemoveToolDef = mcp.NewTool("notification_remove",
	mcp.WithDescription("Remove one notification by id."),
	mcp.WithString("id", mcp.Required()),
)

var notificationClearToolDef = mcp.NewTool("notification_clear",
	mcp.WithDescription("Remove all notifications."),
	mcp.WithDestructiveHintAnnotation(true),
)

var notificationMarkReadToolDef = mcp.NewTool("notification_mark_read",
	mcp.WithDescription("Mark one notification as read."),
	mcp.WithString("id", mcp.Required()),
)
