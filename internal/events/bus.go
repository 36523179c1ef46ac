// Package events is the in-process message bus that drives re-sync: named
// topics, synchronous fan-out, and a timer-coalescing debounce stage.
package events

import (
	"sync"
	"time"
)

const (
	TopicProgressChanged = "progress.changed"
	// TopicProgressCleared fires when the local store becomes empty through a user action.
	TopicProgressCleared = "progress.cleared"
	TopicGameFinished    = "game.finished"
	TopicSignedIn        = "auth.signed-in"
)

type Event struct {
	Topic string
	// Key names the storage slot for progress events, or the user for sign-in events.
	Key string
	At  time.Time
}

type Handler func(Event)

type subscription struct {
	id int
	h  Handler
}

type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]subscription)}
}

// Subscribe registers h for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, h: h})
	return func() { b.unsubscribe(topic, id) }
}

func (b *Bus) unsubscribe(topic string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[topic]
	for i, s := range subs {
		if s.id == id {
			b.handlers[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish calls every handler of ev.Topic in registration order. A panicking
// handler does not stop the others.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[ev.Topic]...)
	b.mu.RUnlock()
	for _, s := range subs {
		func() {
			defer func() { _ = recover() }()
			s.h(ev)
		}()
	}
}
