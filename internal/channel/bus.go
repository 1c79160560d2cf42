// Package channel provides the pub/sub primitive every live-session
// component is built on: named topics scoped to one session, best-effort
// at-most-once delivery to live subscribers, per-publisher order within a
// topic, and nothing buffered for subscribers that are not there.
package channel

import (
	"sync"
)

// Topics used by the live-session core.
const (
	TopicScene     = "scene"
	TopicQuestions = "log:question"
	TopicChat      = "log:chat"
	TopicReactions = "reactions"
)

// Handler receives one published payload.
type Handler func(payload []byte)

// Bus is the transport the core publishes and subscribes through. A publish
// while no one is subscribed is simply lost; reconnecting clients re-fetch a
// baseline instead of expecting replay.
type Bus interface {
	Publish(sessionID, topic string, payload []byte) error
	// Subscribe registers fn for a topic and returns an unsubscribe func.
	// After unsubscribe returns, fn is not running and is never invoked
	// again. fn must not call its own unsubscribe func.
	Subscribe(sessionID, topic string, fn Handler) func()
}

// subscriber.mu is held for the duration of each delivery; unsubscribe takes
// it to close, so it cannot return while fn is still running. A handler must
// therefore never call its own unsubscribe func.
type subscriber struct {
	fn Handler

	mu     sync.Mutex
	closed bool
}

// MemoryBus is the in-process Bus implementation. Delivery is synchronous in
// publish order, so a single publisher's events arrive in the order sent.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]*subscriber
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*subscriber)}
}

func key(sessionID, topic string) string {
	return sessionID + "/" + topic
}

func (b *MemoryBus) Publish(sessionID, topic string, payload []byte) error {
	b.mu.RLock()
	subs := make([]*subscriber, len(b.subs[key(sessionID, topic)]))
	copy(subs, b.subs[key(sessionID, topic)])
	b.mu.RUnlock()

	for _, s := range subs {
		s.mu.Lock()
		if !s.closed {
			s.fn(payload)
		}
		s.mu.Unlock()
	}
	return nil
}

func (b *MemoryBus) Subscribe(sessionID, topic string, fn Handler) func() {
	s := &subscriber{fn: fn}
	k := key(sessionID, topic)

	b.mu.Lock()
	b.subs[k] = append(b.subs[k], s)
	b.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, other := range b.subs[k] {
			if other == s {
				b.subs[k] = append(b.subs[k][:i], b.subs[k][i+1:]...)
				break
			}
		}
		if len(b.subs[k]) == 0 {
			delete(b.subs, k)
		}
	}
}

// Channel binds a Bus to one session id so callers deal only in topics.
type Channel struct {
	bus       Bus
	sessionID string
}

func New(bus Bus, sessionID string) *Channel {
	return &Channel{bus: bus, sessionID: sessionID}
}

func (c *Channel) Publish(topic string, payload []byte) error {
	return c.bus.Publish(c.sessionID, topic, payload)
}

func (c *Channel) Subscribe(topic string, fn Handler) func() {
	return c.bus.Subscribe(c.sessionID, topic, fn)
}
