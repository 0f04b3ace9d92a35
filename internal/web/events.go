package web

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/archiai/studio/internal/project"
	"github.com/archiai/studio/internal/ui"
)

// keepAliveInterval is how often an idle event stream gets a comment line.
var keepAliveInterval = 15 * time.Second

// HandleEvents handles GET /api/events: a server-sent event stream that
// emits the full "project" and "ui" states on connect and again after
// every change. Bursts of changes are coalesced into one event carrying
// the latest state.
func (h *Handlers) HandleEvents(c *gin.Context) {
	projectsChanged := make(chan struct{}, 1)
	uiChanged := make(chan struct{}, 1)
	notify := func(ch chan struct{}) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	// Listeners run inside the store's commit, so they only flag the change.
	unsubProjects := h.app.Projects.Subscribe(func(project.State) { notify(projectsChanged) })
	defer unsubProjects()
	unsubUI := h.app.UI.Subscribe(func(ui.State) { notify(uiChanged) })
	defer unsubUI()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	h.sendProjects(c)
	h.sendUI(c)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-projectsChanged:
			h.sendProjects(c)
		case <-uiChanged:
			h.sendUI(c)
		case <-ticker.C:
			_, _ = c.Writer.WriteString(": keep-alive\n\n")
			c.Writer.Flush()
		}
	}
}

func (h *Handlers) sendProjects(c *gin.Context) {
	st := h.app.Projects.State()
	c.SSEvent("project", gin.H{
		"projects":       st.Projects,
		"currentProject": st.CurrentProject,
		"loading":        st.Loading,
		"error":          st.Error,
	})
	c.Writer.Flush()
}

func (h *Handlers) sendUI(c *gin.Context) {
	c.SSEvent("ui", newUIView(h.app.UI.State()))
	c.Writer.Flush()
}
