// Package store provides the observable state container both studio stores
// are built on.
//
// A Container serializes mutations with a mutex, writes the persisted view of
// each committed state before releasing it, and then delivers the committed
// state to subscribers in commit order. One goroutine drains the delivery
// queue at a time. Without contention, Update returns after its listeners
// ran. When another goroutine is already draining, Update returns as soon as
// its state is queued, and the draining goroutine delivers it. A listener may
// call back into the container: nested mutations are queued and delivered
// after the current round of listeners returns, so no listener ever observes
// states out of order.
package store

import (
	"context"
	"sync"
)

// Listener receives a private copy of a committed state.
type Listener[S any] func(state S)

// PersistFunc writes the durable view of a committed state.
type PersistFunc[S any] func(ctx context.Context, state S) error

type subscription[S any] struct {
	fn Listener[S]
}

// Container holds a state value of type S.
type Container[S any] struct {
	clone   func(S) S
	persist PersistFunc[S]

	mu       sync.Mutex // guards state, pending, draining
	state    S
	pending  []S
	draining bool

	subMu sync.Mutex
	subs  []*subscription[S]
}

// New creates a container holding initial. clone must return a copy that
// shares no mutable memory with its argument. persist may be nil.
func New[S any](initial S, clone func(S) S, persist PersistFunc[S]) *Container[S] {
	return &Container[S]{
		clone:   clone,
		persist: persist,
		state:   initial,
	}
}

// Get returns a copy of the current state.
func (c *Container[S]) Get() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clone(c.state)
}

// Update applies fn to a copy of the current state and commits the result.
// If fn returns an error nothing is committed and nobody is notified.
// Otherwise the new state is persisted and subscribers are notified; a
// persistence error is returned after the commit and does not roll it back.
func (c *Container[S]) Update(ctx context.Context, fn func(*S) error) error {
	return c.commit(ctx, fn, true)
}

// Hydrate commits fn's result without persisting it. Used when the state
// came from storage in the first place.
func (c *Container[S]) Hydrate(fn func(*S)) {
	_ = c.commit(context.Background(), func(s *S) error {
		fn(s)
		return nil
	}, false)
}

func (c *Container[S]) commit(ctx context.Context, fn func(*S) error, persist bool) error {
	c.mu.Lock()
	next := c.clone(c.state)
	if err := fn(&next); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = next

	var persistErr error
	if persist && c.persist != nil {
		persistErr = c.persist(ctx, c.clone(next))
	}

	c.pending = append(c.pending, c.clone(next))
	c.mu.Unlock()

	c.drain()
	return persistErr
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (c *Container[S]) Subscribe(fn Listener[S]) (unsubscribe func()) {
	sub := &subscription[S]{fn: fn}

	c.subMu.Lock()
	c.subs = append(c.subs, sub)
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			for i, s := range c.subs {
				if s == sub {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers reports how many listeners are registered.
func (c *Container[S]) Subscribers() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}

// drain delivers queued states. Only one goroutine drains at a time; any
// other caller leaves its state in the queue for the active drainer.
func (c *Container[S]) drain() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			c.draining = false
			c.mu.Unlock()
			panic(r)
		}
	}()

	for {
		state, ok := c.next()
		if !ok {
			return
		}
		c.deliver(state)
	}
}

func (c *Container[S]) next() (S, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero S
	if len(c.pending) == 0 {
		c.draining = false
		return zero, false
	}
	state := c.pending[0]
	c.pending[0] = zero
	c.pending = c.pending[1:]
	return state, true
}

func (c *Container[S]) deliver(state S) {
	c.subMu.Lock()
	subs := make([]*subscription[S], len(c.subs))
	copy(subs, c.subs)
	c.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(c.clone(state))
	}
}
