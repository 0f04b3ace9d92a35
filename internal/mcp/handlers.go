package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/archiai/studio/internal/app"
	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/ops"
	"github.com/archiai/studio/internal/project"
	"github.com/archiai/studio/internal/ui"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	app *app.App
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a}
}

// ProjectAddRequest represents the arguments for project_add.
type ProjectAddRequest struct {
	Project project.Project `json:"project"`
}

// ProjectUpdateRequest represents the arguments for project_update.
type ProjectUpdateRequest struct {
	ID    string        `json:"id"`
	Patch project.Patch `json:"patch"`
}

// IDRequest carries a single id.
type IDRequest struct {
	ID string `json:"id"`
}

// ProjectReplaceRequest represents the arguments for project_replace.
type ProjectReplaceRequest struct {
	Projects []project.Project `json:"projects"`
}

// ProjectSetStatusRequest represents the arguments for project_set_status.
type ProjectSetStatusRequest struct {
	Loading *bool   `json:"loading,omitempty"`
	Error   *string `json:"error,omitempty"`
}

// ExportRequest represents the arguments for project_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for project_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// ThemeRequest represents the arguments for ui_set_theme.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// SidebarRequest represents the arguments for ui_set_sidebar.
type SidebarRequest struct {
	Open *bool `json:"open"`
}

// LoadingRequest represents the arguments for ui_set_loading.
type LoadingRequest struct {
	Loading *bool `json:"loading"`
}

// HandleProjectList handles the project_list tool call.
func (h *Handlers) HandleProjectList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := h.app.Projects.State()
	return successResult(map[string]any{
		"projects": st.Projects,
		"count":    len(st.Projects),
		"loading":  st.Loading,
		"error":    st.Error,
	})
}

// HandleProjectCurrent handles the project_current tool call.
func (h *Handlers) HandleProjectCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"currentProject": h.app.Projects.State().CurrentProject})
}

// HandleProjectAdd handles the project_add tool call.
func (h *Handlers) HandleProjectAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p := project.FillDefaults(input.Project, time.Now())
	if err := h.app.Projects.AddProject(ctx, p); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"project": p})
}

// HandleProjectUpdate handles the project_update tool call.
func (h *Handlers) HandleProjectUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := requireID(input.ID); err != nil {
		return errorResult(err), nil
	}
	if input.Patch.IsEmpty() {
		return errorResult(errors.NewInvalidRequest("patch must set at least one field")), nil
	}

	_, matched := h.app.Projects.Find(input.ID)
	if err := h.app.Projects.UpdateProject(ctx, input.ID, input.Patch); err != nil {
		return errorResult(err), nil
	}

	out := map[string]any{"id": input.ID, "matched": matched}
	if p, ok := h.app.Projects.Find(patchedID(input.ID, input.Patch)); ok && matched {
		out["project"] = p
	}
	return successResult(out)
}

// HandleProjectDelete handles the project_delete tool call.
func (h *Handlers) HandleProjectDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := requireID(input.ID); err != nil {
		return errorResult(err), nil
	}

	_, existed := h.app.Projects.Find(input.ID)
	if err := h.app.Projects.DeleteProject(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "deleted": existed})
}

// HandleProjectSelect handles the project_select tool call.
func (h *Handlers) HandleProjectSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		if err := h.app.Projects.SetCurrentProject(ctx, nil); err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]any{"currentProject": nil})
	}

	p, ok := h.app.Projects.Find(id)
	if !ok {
		return errorResult(errors.NewNotFound("project", id)), nil
	}
	if err := h.app.Projects.SetCurrentProject(ctx, &p); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"currentProject": p})
}

// HandleProjectReplace handles the project_replace tool call.
func (h *Handlers) HandleProjectReplace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectReplaceRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Projects == nil {
		return errorResult(errors.NewInvalidRequest("projects is required")), nil
	}

	if err := h.app.Projects.SetProjects(ctx, input.Projects); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"count": len(input.Projects)})
}

// HandleProjectSetStatus handles the project_set_status tool call.
func (h *Handlers) HandleProjectSetStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectSetStatusRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Loading == nil && input.Error == nil {
		return errorResult(errors.NewInvalidRequest("set loading, error or both")), nil
	}

	if input.Loading != nil {
		if err := h.app.Projects.SetLoading(ctx, *input.Loading); err != nil {
			return errorResult(err), nil
		}
	}
	if input.Error != nil {
		msg := input.Error
		if *msg == "" {
			msg = nil
		}
		if err := h.app.Projects.SetError(ctx, msg); err != nil {
			return errorResult(err), nil
		}
	}

	st := h.app.Projects.State()
	return successResult(map[string]any{"loading": st.Loading, "error": st.Error})
}

// HandleProjectExport handles the project_export tool call.
func (h *Handlers) HandleProjectExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.app.Projects, h.app.Config, ops.ExportInput{
		Path:       input.Path,
		ExportsDir: h.app.ExportsDir(),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleProjectImport handles the project_import tool call.
func (h *Handlers) HandleProjectImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.app.Projects, h.app.Config, ops.ImportInput{
		Path:       input.Path,
		Mode:       ops.ImportMode(input.Mode),
		ExportsDir: h.app.ExportsDir(),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUIGet handles the ui_get tool call.
func (h *Handlers) HandleUIGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.app.UI.State())
}

// HandleUISetTheme handles the ui_set_theme tool call.
func (h *Handlers) HandleUISetTheme(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ThemeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	theme, err := ui.ParseTheme(input.Theme)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.app.UI.SetTheme(ctx, theme); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"theme": theme})
}

// HandleUISetSidebar handles the ui_set_sidebar tool call.
func (h *Handlers) HandleUISetSidebar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SidebarRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Open == nil {
		return errorResult(errors.NewInvalidRequest("open is required")), nil
	}

	if err := h.app.UI.SetSidebarOpen(ctx, *input.Open); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"sidebarOpen": *input.Open})
}

// HandleUIToggleSidebar handles the ui_toggle_sidebar tool call.
func (h *Handlers) HandleUIToggleSidebar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.app.UI.ToggleSidebar(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"sidebarOpen": h.app.UI.State().SidebarOpen})
}

// HandleUISetLoading handles the ui_set_loading tool call.
func (h *Handlers) HandleUISetLoading(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LoadingRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Loading == nil {
		return errorResult(errors.NewInvalidRequest("loading is required")), nil
	}

	if err := h.app.UI.SetLoading(ctx, *input.Loading); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"loading": *input.Loading})
}

// HandleNotificationAdd handles the notification_add tool call.
func (h *Handlers) HandleNotificationAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ui.NotificationInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Title) == "" {
		return errorResult(errors.NewInvalidRequest("title is required")), nil
	}

	n, err := h.app.UI.AddNotification(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(n)
}

// HandleNotificationRemove handles the notification_remove tool call.
func (h *Handlers) HandleNotificationRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := requireID(input.ID); err != nil {
		return errorResult(err), nil
	}

	if err := h.app.UI.RemoveNotification(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "remaining": len(h.app.UI.State().Notifications)})
}

// HandleNotificationClear handles the notification_clear tool call.
func (h *Handlers) HandleNotificationClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cleared := len(h.app.UI.State().Notifications)
	if err := h.app.UI.ClearNotifications(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"cleared": cleared})
}

// HandleNotificationMarkRead handles the notification_mark_read tool call.
func (h *Handlers) HandleNotificationMarkRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := requireID(input.ID); err != nil {
		return errorResult(err), nil
	}

	if err := h.app.UI.MarkNotificationRead(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "read": true})
}

// patchedID is the id a project carries after patch is applied.
func patchedID(id string, patch project.Patch) string {
	if patch.ID != nil {
		return *patch.ID
	}
	return id
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := errors.As(err); ok {
		msg := sErr.Message
		if err != error(sErr) {
			// keep the wrapping context
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": msg,
			"status":  sErr.Status,
		}
		// INTERNAL details may carry paths or driver errors.
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		if sErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
