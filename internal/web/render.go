package web

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"

	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/ui"
)

// NotificationView is a notification as served to the browser, with the
// message rendered from markdown.
type NotificationView struct {
	ui.Notification
	MessageHTML template.HTML `json:"messageHtml"`
}

func notificationViews(list []ui.Notification) []NotificationView {
	out := make([]NotificationView, len(list))
	for i, n := range list {
		out[i] = NotificationView{Notification: n, MessageHTML: renderMarkdown(n.Message)}
	}
	return out
}

// uiView is the UI state with rendered notifications.
type uiView struct {
	SidebarOpen   bool               `json:"sidebarOpen"`
	Theme         ui.Theme           `json:"theme"`
	Loading       bool               `json:"loading"`
	Notifications []NotificationView `json:"notifications"`
}

func newUIView(st ui.State) uiView {
	return uiView{
		SidebarOpen:   st.SidebarOpen,
		Theme:         st.Theme,
		Loading:       st.Loading,
		Notifications: notificationViews(st.Notifications),
	}
}

// renderError writes the JSON error envelope for err.
// INTERNAL errors are logged and replaced with a generic message.
func renderError(c *gin.Context, logger *slog.Logger, err error) {
	sErr, ok := errors.As(err)
	if !ok {
		sErr = errors.NewInternal(err)
	}

	status := sErr.Status
	message := sErr.Message
	if sErr.Code == errors.ErrInternal {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		message = "an internal error occurred"
	}

	errObj := gin.H{
		"code":    string(sErr.Code),
		"message": message,
		"status":  status,
	}
	if sErr.Code != errors.ErrInternal && len(sErr.Details) > 0 {
		errObj["details"] = sErr.Details
	}
	c.AbortWithStatusJSON(status, gin.H{"error": errObj})
}

// renderJSON writes a JSON response.
func renderJSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is not passed through.
func renderMarkdown(md string) template.HTML {
	if md == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
