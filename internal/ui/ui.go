// Package ui implements the UI Preference Store: sidebar visibility, theme,
// a global loading flag and the session notification queue.
package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/archiai/studio/internal/errors"
)

// Theme is the color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Themes lists the accepted themes.
var Themes = []Theme{ThemeLight, ThemeDark, ThemeSystem}

// Valid reports whether t is one of Themes.
func (t Theme) Valid() bool {
	return slices.Contains(Themes, t)
}

// ParseTheme validates s as a Theme.
func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("theme must be one of: light, dark, system (got %q)", s))
	}
	return t, nil
}

// NotificationType is the severity of a notification.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationSuccess, NotificationError, NotificationWarning, NotificationInfo:
		return true
	}
	return false
}

// Notification is one entry of the notification queue.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp int64            `json:"timestamp"`
	Read      bool             `json:"read"`
}

// NotificationInput is what callers supply to AddNotification. The store
// fills in the id, timestamp and read flag.
type NotificationInput struct {
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
}

// Validate checks the notification type.
func (in NotificationInput) Validate() error {
	if !in.Type.Valid() {
		return errors.NewInvalidRequest(fmt.Sprintf("notification type must be one of: success, error, warning, info (got %q)", in.Type))
	}
	return nil
}
