package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/archiai/studio/internal/app"
	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/project"
	"github.com/archiai/studio/internal/ui"
)

// Handlers contains the HTTP route handlers.
type Handlers struct {
	app     *app.App
	version string
}

// NewHandlers creates handlers bound to the app's stores.
func NewHandlers(a *app.App, version string) *Handlers {
	return &Handlers{app: a, version: version}
}

type replaceProjectsBody struct {
	Projects []project.Project `json:"projects"`
}

type selectProjectBody struct {
	ID string `json:"id"`
}

type projectStatusBody struct {
	Loading *bool   `json:"loading"`
	Error   *string `json:"error"`
}

type themeBody struct {
	Theme string `json:"theme"`
}

type sidebarBody struct {
	Open *bool `json:"open"`
}

type loadingBody struct {
	Loading *bool `json:"loading"`
}

// bind decodes the JSON body into dst, reporting failures as INVALID_REQUEST.
func (h *Handlers) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		renderError(c, h.app.Logger, errors.NewInvalidRequest("invalid body: "+err.Error()))
		return false
	}
	return true
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	renderJSON(c, http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// HandleListProjects handles GET /api/projects.
func (h *Handlers) HandleListProjects(c *gin.Context) {
	st := h.app.Projects.State()
	renderJSON(c, http.StatusOK, gin.H{
		"projects": st.Projects,
		"count":    len(st.Projects),
		"loading":  st.Loading,
		"error":    st.Error,
	})
}

// HandleAddProject handles POST /api/projects.
func (h *Handlers) HandleAddProject(c *gin.Context) {
	var p project.Project
	if !h.bind(c, &p) {
		return
	}

	p = project.FillDefaults(p, time.Now())
	if err := h.app.Projects.AddProject(c.Request.Context(), p); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	renderJSON(c, http.StatusCreated, gin.H{"project": p})
}

// HandleReplaceProjects handles PUT /api/projects.
func (h *Handlers) HandleReplaceProjects(c *gin.Context) {
	var body replaceProjectsBody
	if !h.bind(c, &body) {
		return
	}
	if body.Projects == nil {
		renderError(c, h.app.Logger, errors.NewInvalidRequest("projects is required"))
		return
	}

	if err := h.app.Projects.SetProjects(c.Request.Context(), body.Projects); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	renderJSON(c, http.StatusOK, gin.H{"count": len(body.Projects)})
}

// HandleCurrentProject handles GET /api/projects/current.
func (h *Handlers) HandleCurrentProject(c *gin.Context) {
	renderJSON(c, http.StatusOK, gin.H{"currentProject": h.app.Projects.State().CurrentProject})
}

// HandleSelectProject handles PUT /api/projects/current. An empty id clears the selection.
func (h *Handlers) HandleSelectProject(c *gin.Context) {
	var body selectProjectBody
	if !h.bind(c, &body) {
		return
	}

	ctx := c.Request.Context()
	id := strings.TrimSpace(body.ID)
	if id == "" {
		if err := h.app.Projects.SetCurrentProject(ctx, nil); err != nil {
			renderError(c, h.app.Logger, err)
			return
		}
		renderJSON(c, http.StatusOK, gin.H{"currentProject": nil})
		return
	}

	p, ok := h.app.Projects.Find(id)
	if !ok {
		renderError(c, h.app.Logger, errors.NewNotFound("project", id))
		return
	}
	if err := h.app.Projects.SetCurrentProject(ctx, &p); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	renderJSON(c, http.StatusOK, gin.H{"currentProject": p})
}

// HandleProjectStatus handles PUT /api/projects/status. An empty error clears it.
func (h *Handlers) HandleProjectStatus(c *gin.Context) {
	var body projectStatusBody
	if !h.bind(c, &body) {
		return
	}
	if body.Loading == nil && body.Error == nil {
		renderError(c, h.app.Logger, errors.NewInvalidRequest("set loading, error or both"))
		return
	}

	ctx := c.Request.Context()
	if body.Loading != nil {
		if err := h.app.Projects.SetLoading(ctx, *body.Loading); err != nil {
			renderError(c, h.app.Logger, err)
			return
		}
	}
	if body.Error != nil {
		msg := body.Error
		if *msg == "" {
			msg = nil
		}
		if err := h.app.Projects.SetError(ctx, msg); err != nil {
			renderError(c, h.app.Logger, err)
			return
		}
	}

	st := h.app.Projects.State()
	renderJSON(c, http.StatusOK, gin.H{"loading": st.Loading, "error": st.Error})
}

// HandleUpdateProject handles PATCH /api/projects/:id.
func (h *Handlers) HandleUpdateProject(c *gin.Context) {
	id := c.Param("id")

	var patch project.Patch
	if !h.bind(c, &patch) {
		return
	}
	if patch.IsEmpty() {
		renderError(c, h.app.Logger, errors.NewInvalidRequest("patch must set at least one field"))
		return
	}

	if _, ok := h.app.Projects.Find(id); !ok {
		renderError(c, h.app.Logger, errors.NewNotFound("project", id))
		return
	}
	if err := h.app.Projects.UpdateProject(c.Request.Context(), id, patch); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}

	newID := id
	if patch.ID != nil {
		newID = *patch.ID
	}
	p, _ := h.app.Projects.Find(newID)
	renderJSON(c, http.StatusOK, gin.H{"project": p})
}

// HandleDeleteProject handles DELETE /api/projects/:id.
func (h *Handlers) HandleDeleteProject(c *gin.Context) {
	id := c.Param("id")

	if _, ok := h.app.Projects.Find(id); !ok {
		renderError(c, h.app.Logger, errors.NewNotFound("project", id))
		return
	}
	if err := h.app.Projects.DeleteProject(c.Request.Context(), id); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetUI handles GET /api/ui.
func (h *Handlers) HandleGetUI(c *gin.Context) {
	renderJSON(c, http.StatusOK, newUIView(h.app.UI.State()))
}

// HandleSetTheme handles PUT /api/ui/theme.
func (h *Handlers) HandleSetTheme(c *gin.Context) {
	var body themeBody
	if !h.bind(c, &body) {
		return
	}

	theme, err := ui.ParseTheme(body.Theme)
	if err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	if err := h.app.UI.SetTheme(c.Request.Context(), theme); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	renderJSON(c, http.StatusOK, gin.H{"theme": theme})
}

// HandleSetSidebar handles PUT /api/ui/sidebar.
func (h *Handlers) HandleSetSidebar(c *gin.Context) {
	var body sidebarBody
	if !h.bind(c, &body) {
		return
	}
	if body.Open == nil {
		renderError(c, h.app.Logger, errors.NewInvalidRequest("open is required"))
		return
	}

	if err := h.app.UI.SetSidebarOpen(c.Request.Context(), *body.Open); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	renderJSON(c, http.StatusOK, gin.H{"sidebarOpen": *body.Open})
}

// HandleToggleSidebar handles POST /api/ui/sidebar/toggle.
func (h *Handlers) HandleToggleSidebar(c *gin.Context) {
	if err := h.app.UI.ToggleSidebar(c.Request.Context()); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	renderJSON(c, http.StatusOK, gin.H{"sidebarOpen": h.app.UI.State().SidebarOpen})
}

// HandleSetUILoading handles PUT /api/ui/loading.
func (h *Handlers) HandleSetUILoading(c *gin.Context) {
	var body loadingBody
	if !h.bind(c, &body) {
		return
	}
	if body.Loading == nil {
		renderError(c, h.app.Logger, errors.NewInvalidRequest("loading is required"))
		return
	}

	if err := h.app.UI.SetLoading(c.Request.Context(), *body.Loading); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	renderJSON(c, http.StatusOK, gin.H{"loading": *body.Loading})
}

// HandleListNotifications handles GET /api/ui/notifications.
func (h *Handlers) HandleListNotifications(c *gin.Context) {
	list := h.app.UI.State().Notifications
	renderJSON(c, http.StatusOK, gin.H{
		"notifications": notificationViews(list),
		"count":         len(list),
	})
}

// HandleAddNotification handles POST /api/ui/notifications.
func (h *Handlers) HandleAddNotification(c *gin.Context) {
	var in ui.NotificationInput
	if !h.bind(c, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		renderError(c, h.app.Logger, errors.NewInvalidRequest("title is required"))
		return
	}

	n, err := h.app.UI.AddNotification(c.Request.Context(), in)
	if err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	renderJSON(c, http.StatusCreated, NotificationView{Notification: n, MessageHTML: renderMarkdown(n.Message)})
}

// HandleClearNotifications handles DELETE /api/ui/notifications.
func (h *Handlers) HandleClearNotifications(c *gin.Context) {
	if err := h.app.UI.ClearNotifications(c.Request.Context()); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleRemoveNotification handles DELETE /api/ui/notifications/:id.
// Removing an unknown id succeeds.
func (h *Handlers) HandleRemoveNotification(c *gin.Context) {
	if err := h.app.UI.RemoveNotification(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleMarkNotificationRead handles POST /api/ui/notifications/:id/read.
func (h *Handlers) HandleMarkNotificationRead(c *gin.Context) {
	id := c.Param("id")
	if err := h.app.UI.MarkNotificationRead(c.Request.Context(), id); err != nil {
		renderError(c, h.app.Logger, err)
		return
	}
	renderJSON(c, http.StatusOK, gin.H{"id": id, "read": true})
}
