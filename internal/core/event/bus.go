package event

import (
	"reflect"
	"sync"
)

// Bus carries typed signals. Publish delivers synchronously to the current
// subscribers. Emit queues into a double buffer instead: signals emitted in
// frame N are delivered by DispatchAll in frame N+1, after SwapBuffers.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]handler
	nextID   uint64
}

type handler struct {
	id Subscription
	fn any
}

// Subscription identifies a handler for Unsubscribe.
type Subscription uint64

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]handler),
	}
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the back buffer (delivered next frame).
func Emit[T any](b *Bus, event T) {
	t := typeKey[T]()
	b.back[t] = append(b.back[t], event)
}

// Publish calls every handler subscribed to T before returning.
func Publish[T any](b *Bus, event T) {
	for _, h := range b.snapshot(typeKey[T]()) {
		h.fn.(func(T))(event)
	}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := Subscription(b.nextID)
	t := typeKey[T]()
	b.handlers[t] = append(b.handlers[t], handler{id: id, fn: fn})
	return id
}

// Unsubscribe removes a handler. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, hs := range b.handlers {
		for i, h := range hs {
			if h.id == id {
				b.handlers[t] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

// HasSubscribers reports whether anything listens for T.
func HasSubscribers[T any](b *Bus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[typeKey[T]()]) > 0
}

// snapshot copies the handler list so handlers may (un)subscribe while
// being called.
func (b *Bus) snapshot(t reflect.Type) []handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := b.handlers[t]
	if len(hs) == 0 {
		return nil
	}
	return append([]handler(nil), hs...)
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at frame start.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
func (b *Bus) DispatchAll() {
	for t, events := range b.front {
		handlers := b.snapshot(t)
		for _, ev := range events {
			for _, h := range handlers {
				// Subscribe and Emit use the same type key, so the handler
				// accepts ev.
				callHandler(h.fn, ev)
			}
		}
	}
}

// Pending returns the number of events waiting in the back buffer.
func (b *Bus) Pending() int {
	n := 0
	for _, evs := range b.back {
		n += len(evs)
	}
	return n
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
