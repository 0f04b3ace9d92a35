package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	N    int
	Tags []string
}

func cloneCounter(c counter) counter {
	c.Tags = slices.Clone(c.Tags)
	return c
}

func incr(s *counter) error {
	s.N++
	return nil
}

func TestContainer_UpdateCommitsAndPersists(t *testing.T) {
	var persisted []int
	c := New(counter{}, cloneCounter, func(_ context.Context, s counter) error {
		persisted = append(persisted, s.N)
		return nil
	})

	require.NoError(t, c.Update(context.Background(), incr))
	require.NoError(t, c.Update(context.Background(), incr))

	assert.Equal(t, 2, c.Get().N)
	assert.Equal(t, []int{1, 2}, persisted)
}

func TestContainer_FnErrorCommitsNothing(t *testing.T) {
	calls := 0
	c := New(counter{N: 5}, cloneCounter, func(context.Context, counter) error {
		calls++
		return nil
	})
	notified := 0
	c.Subscribe(func(counter) { notified++ })

	boom := errors.New("boom")
	err := c.Update(context.Background(), func(s *counter) error {
		s.N = 99
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, c.Get().N)
	assert.Zero(t, calls)
	assert.Zero(t, notified)
}

func TestContainer_PersistErrorStillCommits(t *testing.T) {
	diskFull := errors.New("disk full")
	c := New(counter{}, cloneCounter, func(context.Context, counter) error { return diskFull })
	var seen []int
	c.Subscribe(func(s counter) { seen = append(seen, s.N) })

	err := c.Update(context.Background(), incr)

	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, 1, c.Get().N)
	assert.Equal(t, []int{1}, seen)
}

func TestContainer_HydrateSkipsPersist(t *testing.T) {
	calls := 0
	c := New(counter{}, cloneCounter, func(context.Context, counter) error {
		calls++
		return nil
	})
	var seen []int
	c.Subscribe(func(s counter) { seen = append(seen, s.N) })

	c.Hydrate(func(s *counter) { s.N = 7 })

	assert.Equal(t, 7, c.Get().N)
	assert.Zero(t, calls)
	assert.Equal(t, []int{7}, seen)
}

func TestContainer_GetReturnsCopy(t *testing.T) {
	c := New(counter{Tags: []string{"a"}}, cloneCounter, nil)

	s := c.Get()
	s.Tags[0] = "mutated"

	assert.Equal(t, []string{"a"}, c.Get().Tags)
}

func TestContainer_ListenersGetPrivateCopies(t *testing.T) {
	c := New(counter{Tags: []string{"a"}}, cloneCounter, nil)
	c.Subscribe(func(s counter) { s.Tags[0] = "first listener" })
	var second counter
	c.Subscribe(func(s counter) { second = s })

	require.NoError(t, c.Update(context.Background(), incr))

	assert.Equal(t, []string{"a"}, second.Tags)
	assert.Equal(t, []string{"a"}, c.Get().Tags)
}

func TestContainer_SubscribeOrderAndUnsubscribe(t *testing.T) {
	c := New(counter{}, cloneCounter, nil)
	var order []string
	unsubA := c.Subscribe(func(counter) { order = append(order, "a") })
	c.Subscribe(func(counter) { order = append(order, "b") })
	assert.Equal(t, 2, c.Subscribers())

	require.NoError(t, c.Update(context.Background(), incr))
	unsubA()
	unsubA()
	require.NoError(t, c.Update(context.Background(), incr))

	assert.Equal(t, []string{"a", "b", "b"}, order)
	assert.Equal(t, 1, c.Subscribers())
}

func TestContainer_ReentrantUpdateDeliveredInOrder(t *testing.T) {
	c := New(counter{}, cloneCounter, nil)
	var seen []int
	c.Subscribe(func(s counter) {
		seen = append(seen, s.N)
		if s.N == 1 {
			// nested mutation from inside a listener
			require.NoError(t, c.Update(context.Background(), incr))
		}
	})
	c.Subscribe(func(s counter) {
		seen = append(seen, s.N*10)
	})

	require.NoError(t, c.Update(context.Background(), incr))

	assert.Equal(t, []int{1, 10, 2, 20}, seen)
	assert.Equal(t, 2, c.Get().N)
}

func TestContainer_ListenerMayRead(t *testing.T) {
	c := New(counter{}, cloneCounter, nil)
	var read int
	c.Subscribe(func(counter) { read = c.Get().N })

	require.NoError(t, c.Update(context.Background(), incr))
	assert.Equal(t, 1, read)
}

func TestContainer_PanickingListenerDoesNotWedge(t *testing.T) {
	c := New(counter{}, cloneCounter, nil)
	unsub := c.Subscribe(func(counter) { panic("listener bug") })

	assert.Panics(t, func() { _ = c.Update(context.Background(), incr) })
	unsub()

	var seen []int
	c.Subscribe(func(s counter) { seen = append(seen, s.N) })
	require.NoError(t, c.Update(context.Background(), incr))
	assert.Equal(t, []int{2}, seen)
}

func TestContainer_ConcurrentUpdates(t *testing.T) {
	c := New(counter{}, cloneCounter, nil)
	var mu sync.Mutex
	var seen []int
	c.Subscribe(func(s counter) {
		mu.Lock()
		seen = append(seen, s.N)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Update(context.Background(), incr)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Get().N)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 50)
	assert.True(t, slices.IsSorted(seen), "notifications must follow commit order: %v", seen)
}

func TestContainer_UpdateDuringDrainIsDeliveredByDrainer(t *testing.T) {
	c := New(counter{}, cloneCounter, nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []int
	c.Subscribe(func(s counter) {
		if s.N == 1 {
			close(entered)
			<-release
		}
		mu.Lock()
		seen = append(seen, s.N)
		mu.Unlock()
	})

	first := make(chan error, 1)
	go func() { first <- c.Update(context.Background(), incr) }()
	<-entered

	require.NoError(t, c.Update(context.Background(), incr))
	mu.Lock()
	assert.Empty(t, seen, "second update is queued behind the active drainer")
	mu.Unlock()

	close(release)
	require.NoError(t, <-first)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, seen)
}
