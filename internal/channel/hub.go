package channel

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Frame is the wire shape for everything crossing a websocket: the topic the
// payload was published on and the payload itself.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub fans bus traffic out to the websocket connections of one or more
// sessions. The first connection for a session subscribes the hub to that
// session's topics; the last one leaving releases them.
type Hub struct {
	bus Bus

	mu       sync.Mutex
	sessions map[string]*hubSession
}

type hubSession struct {
	conns  map[*websocket.Conn]bool
	unsubs []func()
}

func NewHub(bus Bus) *Hub {
	return &Hub{
		bus:      bus,
		sessions: make(map[string]*hubSession),
	}
}

var hubTopics = []string{TopicScene, TopicQuestions, TopicChat, TopicReactions}

func (h *Hub) AddConnection(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hs, ok := h.sessions[sessionID]
	if !ok {
		hs = &hubSession{conns: make(map[*websocket.Conn]bool)}
		for _, topic := range hubTopics {
			topic := topic
			hs.unsubs = append(hs.unsubs, h.bus.Subscribe(sessionID, topic, func(payload []byte) {
				h.broadcast(sessionID, topic, payload)
			}))
		}
		h.sessions[sessionID] = hs
	}
	hs.conns[conn] = true
	log.Printf("ws: client connected to session %s (total: %d)", sessionID, len(hs.conns))
}

func (h *Hub) RemoveConnection(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	hs, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(hs.conns, conn)
	conn.Close()
	// Unsubscribing can wait for an in-flight delivery, and deliveries take
	// h.mu to broadcast, so the unsubs must run outside the lock.
	var unsubs []func()
	if len(hs.conns) == 0 {
		unsubs = hs.unsubs
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	log.Printf("ws: client disconnected from session %s", sessionID)
}

// Send writes one frame to a single connection. Every write to a registered
// connection must go through the hub: gorilla allows only one concurrent
// writer per connection, and broadcast writes under the same lock.
func (h *Hub) Send(conn *websocket.Conn, frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) broadcast(sessionID, topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hs, ok := h.sessions[sessionID]
	if !ok {
		return
	}

	data, err := json.Marshal(Frame{Type: topic, Data: payload})
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	for conn := range hs.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws: write error: %v", err)
			conn.Close()
			delete(hs.conns, conn)
		}
	}
}
