package ui

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/persist"
	"github.com/archiai/studio/internal/storage"
	"github.com/archiai/studio/internal/store"
)

const (
	// StorageKey is the key the persisted snapshot lives under.
	StorageKey = "ui-storage"

	// SnapshotVersion is the envelope version written by this package.
	SnapshotVersion = 1
)

// State is the UI Preference Store state.
type State struct {
	SidebarOpen   bool           `json:"sidebarOpen"`
	Theme         Theme          `json:"theme"`
	Loading       bool           `json:"loading"`
	Notifications []Notification `json:"notifications"`
}

// snapshot is the persisted subset. Keys absent from a stored blob keep the
// current value.
type snapshot struct {
	SidebarOpen *bool `json:"sidebarOpen,omitempty"`
	Theme       Theme `json:"theme,omitempty"`
}

func defaultState() State {
	return State{
		SidebarOpen:   true,
		Theme:         ThemeSystem,
		Notifications: []Notification{},
	}
}

func cloneState(s State) State {
	out := s
	out.Notifications = slices.Clone(s.Notifications)
	return out
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for rehydration warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source for notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Store is the UI Preference Store. It is safe for concurrent use.
type Store struct {
	c      *store.Container[State]
	snap   *persist.Snapshotter[snapshot]
	logger *slog.Logger
	now    func() time.Time

	// entropy is only read inside container updates, which are serialized.
	entropy io.Reader
}

// Open creates a Store backed by kv and rehydrates the sidebar and theme
// preferences. An unreadable or too-new snapshot is logged and ignored.
func Open(ctx context.Context, kv storage.Storage, opts ...Option) (*Store, error) {
	o := options{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		snap:    persist.New[snapshot](kv, StorageKey, SnapshotVersion, migrate),
		logger:  o.logger,
		now:     o.now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	s.c = store.New(defaultState(), cloneState, s.persist)

	if err := s.Rehydrate(ctx); err != nil {
		if !persist.IsInvalidSnapshot(err) {
			return nil, err
		}
		s.logger.Warn("ignoring unusable ui snapshot, using defaults", "key", StorageKey, "error", err)
	}
	return s, nil
}

// migrate upgrades older snapshots. Version 0 blobs have the current shape.
func migrate(state json.RawMessage, _ int) (json.RawMessage, error) {
	return state, nil
}

func (s *Store) persist(ctx context.Context, st State) error {
	open := st.SidebarOpen
	return s.snap.Save(ctx, snapshot{SidebarOpen: &open, Theme: st.Theme})
}

// Rehydrate merges the stored sidebarOpen and theme over the current state.
// A stored theme that is not recognized keeps the current theme.
func (s *Store) Rehydrate(ctx context.Context) error {
	snap, found, err := s.snap.Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	var open bool
	s.c.Hydrate(func(st *State) {
		if snap.SidebarOpen != nil {
			st.SidebarOpen = *snap.SidebarOpen
		}
		switch {
		case snap.Theme == "":
		case snap.Theme.Valid():
			st.Theme = snap.Theme
		default:
			s.logger.Warn("ignoring unknown stored theme", "theme", string(snap.Theme))
		}
		open = st.SidebarOpen
	})
	s.logger.Debug("rehydrated ui store", "sidebar_open", open, "theme", string(snap.Theme))
	return nil
}

// ClearStorage removes the persisted snapshot.
func (s *Store) ClearStorage(ctx context.Context) error {
	return s.snap.Clear(ctx)
}

// State returns a copy of the current state.
func (s *Store) State() State {
	return s.c.Get()
}

// Subscribe registers fn to receive every committed state.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.c.Subscribe(store.Listener[State](fn))
}

// ToggleSidebar flips the sidebar visibility.
func (s *Store) ToggleSidebar(ctx context.Context) error {
	return s.c.Update(ctx, func(st *State) error {
		st.SidebarOpen = !st.SidebarOpen
		return nil
	})
}

// SetSidebarOpen sets the sidebar visibility.
func (s *Store) SetSidebarOpen(ctx context.Context, open bool) error {
	return s.c.Update(ctx, func(st *State) error {
		st.SidebarOpen = open
		return nil
	})
}

// SetTheme sets the theme. Values other than light, dark and system are
// rejected with INVALID_REQUEST.
func (s *Store) SetTheme(ctx context.Context, theme Theme) error {
	if !theme.Valid() {
		return errors.NewInvalidRequest("theme must be one of: light, dark, system")
	}
	return s.c.Update(ctx, func(st *State) error {
		st.Theme = theme
		return nil
	})
}

// SetLoading sets the global loading flag.
func (s *Store) SetLoading(ctx context.Context, loading bool) error {
	return s.c.Update(ctx, func(st *State) error {
		st.Loading = loading
		return nil
	})
}

// AddNotification appends a new unread notification and returns it.
// The returned notification is valid even when err reports a persistence
// failure.
func (s *Store) AddNotification(ctx context.Context, in NotificationInput) (Notification, error) {
	if err := in.Validate(); err != nil {
		return Notification{}, err
	}

	var n Notification
	err := s.c.Update(ctx, func(st *State) error {
		now := s.now()
		id, err := ulid.New(ulid.Timestamp(now), s.entropy)
		if err != nil {
			return errors.NewInternal(err)
		}
		n = Notification{
			ID:        id.String(),
			Type:      in.Type,
			Title:     in.Title,
			Message:   in.Message,
			Timestamp: now.UnixMilli(),
		}
		st.Notifications = append(st.Notifications, n)
		return nil
	})
	return n, err
}

// RemoveNotification removes the notification with the given id. Removing
// an unknown id changes nothing.
func (s *Store) RemoveNotification(ctx context.Context, id string) error {
	return s.c.Update(ctx, func(st *State) error {
		if i := indexOf(st.Notifications, id); i >= 0 {
			st.Notifications = slices.Delete(st.Notifications, i, i+1)
		}
		return nil
	})
}

// ClearNotifications empties the notification queue.
func (s *Store) ClearNotifications(ctx context.Context) error {
	return s.c.Update(ctx, func(st *State) error {
		st.Notifications = []Notification{}
		return nil
	})
}

// MarkNotificationRead sets the read flag of the notification with the
// given id. Returns NOT_FOUND for an unknown id.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	return s.c.Update(ctx, func(st *State) error {
		i := indexOf(st.Notifications, id)
		if i < 0 {
			return errors.NewNotFound("notification", id)
		}
		st.Notifications[i].Read = true
		return nil
	})
}

func indexOf(list []Notification, id string) int {
	return slices.IndexFunc(list, func(n Notification) bool { return n.ID == id })
}
