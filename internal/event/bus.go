// Package event provides a synchronous pub-sub bus for connectivity
// transitions. The health monitor and the HTTP client publish here;
// UI consumers subscribe for connection indicators instead of watching
// individual API calls.
package event

import (
	"log"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Type identifies a connectivity transition.
type Type string

const (
	Connected    Type = "connected"
	Disconnected Type = "disconnected"
	Error        Type = "error"
)

// Event is a single connectivity notification.
type Event struct {
	Type    Type
	At      time.Time
	Err     error  // set for Error events
	Message string // optional human-readable detail
}

// Handler is a function that handles an event.
type Handler func(Event)

type subscription struct {
	id      string
	handler Handler
}

// Bus dispatches events to registered handlers synchronously, in
// registration order. There is no queuing or replay: only handlers
// registered at publish time are invoked.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Type][]subscription
	nextID atomic.Uint64
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Type][]subscription)}
}

// Subscribe registers a handler for one event type and returns a token
// for Unsubscribe.
func (b *Bus) Subscribe(t Type, h Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := "sub-" + strconv.FormatUint(b.nextID.Add(1), 10)
	b.subs[t] = append(b.subs[t], subscription{id: id, handler: h})
	return id
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) string {
	return b.Subscribe("*", h)
}

// Unsubscribe removes a subscription by token. O(n) over the type's
// handler list. Returns true if the subscription was found.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == id {
				b.subs[t] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches ev to handlers of its type, then to wildcard
// handlers, each in registration order. A panicking handler is recovered
// and logged so it cannot block delivery to the rest.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	specific := make([]subscription, len(b.subs[ev.Type]))
	copy(specific, b.subs[ev.Type])
	wildcard := make([]subscription, len(b.subs["*"]))
	copy(wildcard, b.subs["*"])
	b.mu.RUnlock()

	for _, sub := range specific {
		safeCall(sub.handler, ev)
	}
	for _, sub := range wildcard {
		safeCall(sub.handler, ev)
	}
}

func safeCall(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[event] handler panicked on %s: %v\n%s", ev.Type, r, debug.Stack())
		}
	}()
	h(ev)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Type][]subscription)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}
