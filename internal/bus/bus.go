// Package bus provides a small in-process publish/subscribe channel used to
// decouple the action executor from the UI widgets that react to prefill,
// popup and undo events. The bus is an injected value, not ambient global
// dispatch; hosts construct one at the composition root.
package bus

import (
	"sync"

	"mira/internal/logging"
)

// Topic names a message channel.
type Topic string

// Topics published by the action executor.
const (
	TopicPrefill Topic = "mira:prefill"
	TopicPopup   Topic = "mira:popup"
	TopicUndo    Topic = "mira:auto-actions:undo"
)

// Event is one published message.
type Event struct {
	Topic         Topic
	CorrelationID string
	Payload       interface{}
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine; a panicking handler never prevents delivery to the
// remaining subscribers.
type Handler func(Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus is a synchronous publish/subscribe dispatcher.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic][]subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers a handler for one topic and returns an unsubscribe
// function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	if h == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic]
		for i, sub := range subs {
			if sub.id == id {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers an event to every subscriber of its topic, in subscription
// order.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[ev.Topic]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		deliver(sub.handler, ev)
	}
}

// SubscriberCount returns the number of subscribers for a topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func deliver(h Handler, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.ActionsWarn("Bus subscriber panicked on %s: %v", ev.Topic, rec)
		}
	}()
	h(ev)
}
