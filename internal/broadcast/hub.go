// Package broadcast implements the change-only observer fan-out shared by the
// location session, connectivity monitor, and domain stores.
package broadcast

import (
	"log"
	"sync"
)

// Listener receives the full state snapshot after a change.
type Listener[T any] func(T)

// Hub owns one state value and notifies listeners if and only if an update
// actually changed it under the configured equality. Listeners are invoked in
// registration order; a panicking listener is recovered and logged and does
// not prevent the remaining listeners from running.
type Hub[T any] struct {
	mu        sync.Mutex
	state     T
	equal     func(prev, next T) bool
	listeners []entry[T]
	nextID    int
}

type entry[T any] struct {
	id int
	fn Listener[T]
}

// NewHub creates a hub with an initial state and an equality function. The
// equality function decides which fields are tracked for change detection.
func NewHub[T any](initial T, equal func(prev, next T) bool) *Hub[T] {
	return &Hub[T]{state: initial, equal: equal}
}

// Snapshot returns a copy of the current state.
func (h *Hub[T]) Snapshot() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Update replaces the state and notifies listeners when it changed.
func (h *Hub[T]) Update(next T) {
	h.Apply(func(T) T { return next })
}

// Apply merges a partial update by passing the current state through fn and
// storing the result. Listeners are notified with the merged snapshot only if
// at least one tracked field differs from the previous value.
func (h *Hub[T]) Apply(fn func(prev T) T) {
	h.mu.Lock()
	prev := h.state
	next := fn(prev)
	h.state = next
	if h.equal(prev, next) {
		h.mu.Unlock()
		return
	}
	targets := make([]entry[T], len(h.listeners))
	copy(targets, h.listeners)
	h.mu.Unlock()

	// Invoked outside the lock so a listener may read the hub again.
	for _, l := range targets {
		notify(l.fn, next)
	}
}

func notify[T any](fn Listener[T], state T) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("broadcast: listener panic recovered: %v", r)
		}
	}()
	fn(state)
}

// Subscribe registers a listener and returns the current snapshot together
// with an unsubscribe function. The snapshot replaces a synchronous initial
// callback: callers seed themselves from it and then receive future changes.
func (h *Hub[T]) Subscribe(fn Listener[T]) (T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.listeners = append(h.listeners, entry[T]{id: id, fn: fn})

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, l := range h.listeners {
			if l.id == id {
				h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
				return
			}
		}
	}
	return h.state, unsubscribe
}

// ClearListeners drops every registered listener. The state value is kept.
func (h *Hub[T]) ClearListeners() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = nil
}

// ListenerCount reports the number of registered listeners.
func (h *Hub[T]) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
