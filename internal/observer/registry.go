package observer

import (
	"log/slog"
	"sync"
	"weak"
)

// Token represents a live subscription. It holds the only strong
// reference to the registry's internal handle for a listener: as long as
// a caller keeps the Token reachable, the listener stays registered: once
// the Token is dropped (or Unregister is called explicitly) the
// registry's weak reference clears and the entry is pruned on the next
// notification.
type Token struct {
	id     uint64
	remove func(uint64)
	// handle is the strong reference the weak.Pointer in the registry
	// points at. Keeping it here, not just in the registry, is what
	// keeps the subscription alive for as long as the Token is
	// reachable.
	handle any
}

// Unregister removes the subscription immediately rather than waiting for
// the Token to be garbage collected.
func (t *Token) Unregister() {
	if t == nil || t.remove == nil {
		return
	}
	t.remove(t.id)
	t.remove = nil
	t.handle = nil
}

type taskHandle struct {
	listener TaskListener
}

// TaskRegistry is a weakly-held registry of TaskListeners.
type TaskRegistry struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]weak.Pointer[taskHandle]
	log     *slog.Logger
}

// NewTaskRegistry returns an empty TaskRegistry.
func NewTaskRegistry(log *slog.Logger) *TaskRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &TaskRegistry{
		entries: make(map[uint64]weak.Pointer[taskHandle]),
		log:     log.With("component", "task_observer_registry"),
	}
}

// Register subscribes l and returns a Token the caller must keep
// reachable (or explicitly Unregister) to stay subscribed.
func (r *TaskRegistry) Register(l TaskListener) *Token {
	h := &taskHandle{listener: l}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.entries[id] = weak.Make(h)
	r.mu.Unlock()

	return &Token{id: id, remove: r.remove, handle: h}
}

func (r *TaskRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Notify snapshots live listeners under the registry's mutex, purges dead
// entries, and submits each live listener's callback to exec. A listener
// panic is recovered and logged, never allowed to propagate to the
// caller — an observer must not be able to poison the Dispatcher.
func (r *TaskRegistry) Notify(exec CallbackExecutor, change TaskChange) {
	listeners := r.snapshot()
	for _, l := range listeners {
		l := l
		exec.Run(func() {
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("task listener panicked", "panic", p, "change_kind", change.Kind)
				}
			}()
			l.OnTaskChange(change)
		})
	}
}

func (r *TaskRegistry) snapshot() []TaskListener {
	r.mu.Lock()
	defer r.mu.Unlock()

	listeners := make([]TaskListener, 0, len(r.entries))
	for id, w := range r.entries {
		if h := w.Value(); h != nil {
			listeners = append(listeners, h.listener)
		} else {
			delete(r.entries, id)
		}
	}
	return listeners
}

type eventHandle struct {
	listener EventListener
}

// EventRegistry is a weakly-held registry of EventListeners.
type EventRegistry struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]weak.Pointer[eventHandle]
	log     *slog.Logger
}

// NewEventRegistry returns an empty EventRegistry.
func NewEventRegistry(log *slog.Logger) *EventRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &EventRegistry{
		entries: make(map[uint64]weak.Pointer[eventHandle]),
		log:     log.With("component", "event_observer_registry"),
	}
}

// Register subscribes l and returns a Token the caller must keep
// reachable (or explicitly Unregister) to stay subscribed.
func (r *EventRegistry) Register(l EventListener) *Token {
	h := &eventHandle{listener: l}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.entries[id] = weak.Make(h)
	r.mu.Unlock()

	return &Token{id: id, remove: r.remove, handle: h}
}

func (r *EventRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Notify snapshots live listeners, purges dead entries, and submits each
// live listener's callback to exec, recovering and logging any panic.
func (r *EventRegistry) Notify(exec CallbackExecutor, change EventChange) {
	listeners := r.snapshot()
	for _, l := range listeners {
		l := l
		exec.Run(func() {
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("event listener panicked", "panic", p, "change_kind", change.Kind)
				}
			}()
			l.OnEventChange(change)
		})
	}
}

func (r *EventRegistry) snapshot() []EventListener {
	r.mu.Lock()
	defer r.mu.Unlock()

	listeners := make([]EventListener, 0, len(r.entries))
	for id, w := range r.entries {
		if h := w.Value(); h != nil {
			listeners = append(listeners, h.listener)
		} else {
			delete(r.entries, id)
		}
	}
	return listeners
}
