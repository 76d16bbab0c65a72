// Package bus is the client-side invalidation channel. Publishing on a topic
// means only that something in that resource class changed.
package bus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Topic names a resource class
type Topic string

const (
	TopicArticles   Topic = "articles"
	TopicCategories Topic = "categories"
)

// Handler is called once per publish on its topic. It runs on the
// publisher's goroutine and must not block.
type Handler func(topic Topic)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans out invalidation signals to topic subscribers. Every handler
// subscribed when Publish starts is called; nothing is dropped.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]subscription
	nextID   uint64
	log      zerolog.Logger
}

// New creates an empty bus
func New(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Topic][]subscription),
		log:      log.With().Str("component", "bus").Logger(),
	}
}

// Subscribe registers handler on topic and returns a func that removes it.
// The returned func is safe to call more than once.
func (b *Bus) Subscribe(topic Topic, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[topic]
	for i, s := range subs {
		if s.id == id {
			b.handlers[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[topic]) == 0 {
		delete(b.handlers, topic)
	}
}

// Publish signals every current subscriber of topic and returns how many
// were called. Handlers may subscribe or unsubscribe while being called.
func (b *Bus) Publish(topic Topic) int {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[topic]))
	copy(subs, b.handlers[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(topic)
	}

	b.log.Debug().Str("topic", string(topic)).Int("subscribers", len(subs)).Msg("Published invalidation")
	return len(subs)
}

// Subscribers returns the number of handlers on topic
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}
