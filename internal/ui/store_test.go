package ui

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/storage"
)

func openStore(t *testing.T, kv storage.Storage, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), kv, opts...)
	require.NoError(t, err)
	return s
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestOpen_Defaults(t *testing.T) {
	st := openStore(t, storage.NewMemory()).State()

	assert.True(t, st.SidebarOpen)
	assert.Equal(t, ThemeSystem, st.Theme)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Notifications)
}

func TestToggleAndSetSidebar(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory())

	require.NoError(t, s.ToggleSidebar(ctx))
	assert.False(t, s.State().SidebarOpen)
	require.NoError(t, s.ToggleSidebar(ctx))
	assert.True(t, s.State().SidebarOpen)

	require.NoError(t, s.SetSidebarOpen(ctx, false))
	require.NoError(t, s.SetSidebarOpen(ctx, false))
	assert.False(t, s.State().SidebarOpen)
}

func TestSetTheme(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory())

	require.NoError(t, s.SetTheme(ctx, ThemeDark))
	assert.Equal(t, ThemeDark, s.State().Theme)

	err := s.SetTheme(ctx, Theme("sepia"))
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.Equal(t, ThemeDark, s.State().Theme)
}

func TestParseTheme(t *testing.T) {
	th, err := ParseTheme(" Dark ")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, th)

	_, err = ParseTheme("blue")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := openStore(t, storage.NewMemory(), WithClock(fixedClock(now)))

	n, err := s.AddNotification(ctx, NotificationInput{Type: NotificationInfo, Title: "T", Message: "M"})
	require.NoError(t, err)

	st := s.State()
	require.Len(t, st.Notifications, 1)
	assert.Equal(t, n, st.Notifications[0])
	assert.False(t, n.Read)
	assert.Equal(t, now.UnixMilli(), n.Timestamp)
	assert.Equal(t, "T", n.Title)
	assert.Equal(t, "M", n.Message)
	assert.NotEmpty(t, n.ID)

	require.NoError(t, s.ClearNotifications(ctx))
	assert.Empty(t, s.State().Notifications)
}

func TestRemoveNotification_KeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory())

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		n, err := s.AddNotification(ctx, NotificationInput{Type: NotificationSuccess, Title: title})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	require.NoError(t, s.RemoveNotification(ctx, ids[1]))
	require.NoError(t, s.RemoveNotification(ctx, "unknown"))

	st := s.State()
	require.Len(t, st.Notifications, 2)
	assert.Equal(t, "a", st.Notifications[0].Title)
	assert.Equal(t, "c", st.Notifications[1].Title)
}

func TestAddNotification_UniqueIDsWithinSameMillisecond(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory(), WithClock(fixedClock(time.UnixMilli(1_700_000_000_000))))

	seen := make(map[string]bool)
	var prev string
	for i := 0; i < 200; i++ {
		n, err := s.AddNotification(ctx, NotificationInput{Type: NotificationInfo, Title: fmt.Sprint(i)})
		require.NoError(t, err)
		require.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
		assert.Greater(t, n.ID, prev)
		prev = n.ID
	}
}

func TestAddNotification_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddNotification(ctx, NotificationInput{Type: NotificationWarning, Title: "w"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st := s.State()
	require.Len(t, st.Notifications, 20)
	ids := make(map[string]bool)
	for _, n := range st.Notifications {
		ids[n.ID] = true
	}
	assert.Len(t, ids, 20)
}

func TestAddNotification_InvalidType(t *testing.T) {
	s := openStore(t, storage.NewMemory())

	_, err := s.AddNotification(context.Background(), NotificationInput{Type: "fatal", Title: "x"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.Empty(t, s.State().Notifications)
}

func TestMarkNotificationRead(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory())
	a, err := s.AddNotification(ctx, NotificationInput{Type: NotificationError, Title: "a"})
	require.NoError(t, err)
	b, err := s.AddNotification(ctx, NotificationInput{Type: NotificationError, Title: "b"})
	require.NoError(t, err)

	require.NoError(t, s.MarkNotificationRead(ctx, b.ID))

	st := s.State()
	assert.False(t, st.Notifications[0].Read)
	assert.True(t, st.Notifications[1].Read)
	assert.Equal(t, a.ID, st.Notifications[0].ID)

	err = s.MarkNotificationRead(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPersistenceScope(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := openStore(t, kv)
	require.NoError(t, s.ToggleSidebar(ctx))
	require.NoError(t, s.SetTheme(ctx, ThemeLight))
	require.NoError(t, s.SetLoading(ctx, true))
	_, err := s.AddNotification(ctx, NotificationInput{Type: NotificationInfo, Title: "T", Message: "M"})
	require.NoError(t, err)

	raw, found, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"state":{"sidebarOpen":false,"theme":"light"},"version":1}`, string(raw))

	st := openStore(t, kv).State()
	assert.False(t, st.SidebarOpen)
	assert.Equal(t, ThemeLight, st.Theme)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Notifications)
}

func TestOpen_UnknownStoredThemeKeepsDefault(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, StorageKey, []byte(`{"state":{"sidebarOpen":false,"theme":"neon"},"version":1}`)))

	st := openStore(t, kv).State()
	assert.False(t, st.SidebarOpen)
	assert.Equal(t, ThemeSystem, st.Theme)
}

func TestOpen_MissingKeysKeepDefaults(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, StorageKey, []byte(`{"state":{"theme":"dark"},"version":1}`)))

	st := openStore(t, kv).State()
	assert.True(t, st.SidebarOpen)
	assert.Equal(t, ThemeDark, st.Theme)

	require.NoError(t, kv.Set(ctx, StorageKey, []byte(`{"state":{"sidebarOpen":false},"version":1}`)))
	st = openStore(t, kv).State()
	assert.False(t, st.SidebarOpen)
	assert.Equal(t, ThemeSystem, st.Theme)
}

func TestOpen_CorruptSnapshotUsesDefaults(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, StorageKey, []byte(`not json`)))

	st := openStore(t, kv).State()
	assert.True(t, st.SidebarOpen)
	assert.Equal(t, ThemeSystem, st.Theme)
}

func TestSubscribeSeesEveryMutation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory())
	var themes []Theme
	unsubscribe := s.Subscribe(func(st State) { themes = append(themes, st.Theme) })

	require.NoError(t, s.SetTheme(ctx, ThemeDark))
	require.NoError(t, s.ToggleSidebar(ctx))
	unsubscribe()
	require.NoError(t, s.SetTheme(ctx, ThemeLight))

	assert.Equal(t, []Theme{ThemeDark, ThemeDark}, themes)
}

func TestClearStorage(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := openStore(t, kv)
	require.NoError(t, s.SetTheme(ctx, ThemeDark))

	require.NoError(t, s.ClearStorage(ctx))

	assert.Equal(t, ThemeDark, s.State().Theme)
	assert.Equal(t, ThemeSystem, openStore(t, kv).State().Theme)
}
