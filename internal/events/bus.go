package events

import (
	"log/slog"
	"sort"
	"sync"
)

// Handler receives a published event. Handlers run synchronously in
// publish order on the publisher's goroutine.
type Handler func(Event)

// Bus is the local multi-subscriber registry that insulates the rest of
// the client from transport-level event delivery. A handler that panics is
// recovered and logged and never prevents other handlers for the same
// event from running.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
}

// NewBus creates an event bus. If logger is nil, slog.Default() is used.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[string]map[int]Handler),
	}
}

// Subscribe registers a handler for the named event and returns an
// unsubscribe function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[name] == nil {
		b.handlers[name] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[name][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[name], id)
	}
}

// Publish fans the event out to every handler registered for its name.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	registered := b.handlers[ev.Name()]
	ids := make([]int, 0, len(registered))
	for id := range registered {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, len(ids))
	for i, id := range ids {
		handlers[i] = registered[id]
	}
	b.mu.RUnlock()

	// Subscription order, so earlier subscribers observe events first.
	for i, h := range handlers {
		b.dispatch(ev, ids[i], h)
	}
}

func (b *Bus) dispatch(ev Event, id int, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", ev.Name(),
				"handler_id", id,
				"panic", r,
			)
		}
	}()
	h(ev)
}

// SubscriberCount reports how many handlers are registered for an event
// name. Intended for tests and diagnostics.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}
