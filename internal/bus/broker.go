// Package bus provides the process-wide publish/subscribe channel that
// replaces the storefront's window-level custom events. Any UI region that
// shows cart totals subscribes to TopicCartUpdated; the synchronizer that
// issued the mutation never talks to those regions directly.
package bus

import (
	"sync"

	"github.com/google/uuid"
)

// TopicCartUpdated carries a *cartsync.Update after every successful cart
// mutation. A nil Cart in the payload signals "full refresh".
const TopicCartUpdated = "cart:updated"

// Handler receives every payload published on a subscribed topic.
// Handlers run synchronously on the publisher's goroutine.
type Handler func(topic string, payload any)

// Broker is an in-memory topic fan-out. Subscriptions are keyed by uuid so
// a subscriber can detach without holding a channel open.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[string]Handler // topic -> subscription id -> handler
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[string]Handler)}
}

// Subscribe registers a handler for a topic and returns its subscription id.
func (b *Broker) Subscribe(topic string, h Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]Handler)
	}
	b.subs[topic][id] = h
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Broker) Unsubscribe(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[topic], id)
}

// Publish delivers payload to every handler subscribed to topic.
func (b *Broker) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	// Handlers run outside the lock so they may subscribe/unsubscribe.
	for _, h := range handlers {
		h(topic, payload)
	}
}
