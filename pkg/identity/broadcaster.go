package identity

import "sync"

// Broadcaster fans auth-state change events out to subscribers.
//
// Delivery is synchronous and in registration order: Publish does not return
// until every handler has run. The client identity cache relies on this to
// apply a signed-out event before any later resolve can observe stale state.
type Broadcaster struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]AuthHandler
	order    []int
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		handlers: make(map[int]AuthHandler),
	}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing twice is a no-op.
func (b *Broadcaster) Subscribe(h AuthHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.handlers[id]; !ok {
			return
		}
		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// OnAuthStateChange registers a handler and returns its unsubscribe
// function. It is an alias for Subscribe matching the Store interface.
func (b *Broadcaster) OnAuthStateChange(h AuthHandler) func() {
	return b.Subscribe(h)
}

// Publish delivers the event to every current subscriber synchronously
func (b *Broadcaster) Publish(ev AuthEvent) {
	b.mu.Lock()
	handlers := make([]AuthHandler, 0, len(b.handlers))
	for _, id := range b.order {
		if h, ok := b.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Len returns the number of live subscriptions
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
