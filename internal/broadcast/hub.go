// Package broadcast provides a small typed publish/subscribe hub.
//
// Subscribers are called synchronously on the publishing goroutine, in the
// order they subscribed. A Hub never buffers or drops values: if a subscriber
// blocks, the publisher blocks with it.
package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

// Hub fans published values out to its subscribers.
type Hub[T any] struct {
	mu    sync.RWMutex
	order []uuid.UUID
	subs  map[uuid.UUID]func(T)
}

// New creates an empty hub
func New[T any]() *Hub[T] {
	return &Hub[T]{
		subs: make(map[uuid.UUID]func(T)),
	}
}

// Subscribe registers fn and returns a function that removes it again.
// The returned function is safe to call more than once.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	id := uuid.New()

	h.mu.Lock()
	h.subs[id] = fn
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub[T]) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs, id)
	for i, existing := range h.order {
		if existing == id {
			h.order = append(h.order[:i:i], h.order[i+1:]...)
			break
		}
	}
}

// Publish delivers v to every current subscriber.
// The subscriber set is captured before delivery, so a subscriber may
// unsubscribe itself (or others) from inside its callback.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	if len(h.order) == 0 {
		h.mu.RUnlock()
		return
	}
	targets := make([]func(T), 0, len(h.order))
	for _, id := range h.order {
		targets = append(targets, h.subs[id])
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(v)
	}
}

// Len returns the number of current subscribers
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}
