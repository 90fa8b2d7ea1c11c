// Package hook provides ordered lifecycle callbacks. Hooks are plain
// values owned by whoever composes them (usually the App), not ambient
// global state.
package hook

import (
	"log/slog"
	"sort"
	"sync"
)

// Handler is one registered callback with an optional id and priority.
// Lower priority runs first; handlers with equal priority run in
// registration order.
type Handler[T any] struct {
	ID       string
	Priority int
	Func     func(*T) error
}

// Hook is an ordered list of handlers for one event type. Safe for
// concurrent Bind/Trigger.
type Hook[T any] struct {
	mu       sync.RWMutex
	handlers []Handler[T]
	logger   *slog.Logger
}

// New creates an empty hook. A nil logger falls back to slog.Default.
func New[T any](logger *slog.Logger) *Hook[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook[T]{logger: logger}
}

// Bind registers a callback with default priority 0.
func (h *Hook[T]) Bind(fn func(*T) error) {
	h.BindHandler(Handler[T]{Func: fn})
}

// BindHandler registers a callback with explicit id and priority.
func (h *Hook[T]) BindHandler(handler Handler[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, handler)
	sort.SliceStable(h.handlers, func(i, j int) bool {
		return h.handlers[i].Priority < h.handlers[j].Priority
	})
}

// Length returns the number of registered handlers.
func (h *Hook[T]) Length() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// Trigger invokes every handler in order with the same event value.
// Handler errors are logged and do not stop the chain.
func (h *Hook[T]) Trigger(event *T) {
	h.mu.RLock()
	handlers := make([]Handler[T], len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Func(event); err != nil {
			h.logger.Error("hook handler failed", "id", handler.ID, "error", err)
		}
	}
}
