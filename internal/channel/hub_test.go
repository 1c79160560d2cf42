package channel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func hubServer(t *testing.T, hub *Hub, sessionID string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.AddConnection(sessionID, conn)
		defer hub.RemoveConnection(sessionID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestHubForwardsBusEvents verifies a bus publish reaches every websocket
// client of the session as a typed frame.
func TestHubForwardsBusEvents(t *testing.T) {
	bus := NewMemoryBus()
	hub := NewHub(bus)
	srv := hubServer(t, hub, "7")

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	time.Sleep(50 * time.Millisecond) // let both register

	bus.Publish("7", TopicScene, []byte(`{"kind":"quiz","item_index":0}`))

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if frame.Type != TopicScene {
			t.Errorf("frame type %q, want %q", frame.Type, TopicScene)
		}
	}
}

// TestSendSerializesWithBroadcasts verifies a direct per-connection send can
// run while bus traffic is being fanned out to the same connection: every
// frame the client reads is intact.
func TestSendSerializesWithBroadcasts(t *testing.T) {
	bus := NewMemoryBus()
	hub := NewHub(bus)

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.AddConnection("7", conn)
		defer hub.RemoveConnection("7", conn)
		serverConns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	client := dial(t, srv)
	server := <-serverConns

	const rounds = 50
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < rounds; i++ {
			bus.Publish("7", TopicScene, []byte(`{"kind":"quiz","item_index":0}`))
		}
	}()
	for i := 0; i < rounds; i++ {
		if err := hub.Send(server, Frame{Type: "state", Data: json.RawMessage(`{}`)}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	<-done

	for i := 0; i < 2*rounds; i++ {
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("frame %d corrupted: %v", i, err)
		}
		if frame.Type != "state" && frame.Type != TopicScene {
			t.Errorf("frame %d has type %q", i, frame.Type)
		}
	}
}

// TestHubReleasesTopicsWhenEmpty verifies the hub unsubscribes from the bus
// once the last client of a session disconnects.
func TestHubReleasesTopicsWhenEmpty(t *testing.T) {
	bus := NewMemoryBus()
	hub := NewHub(bus)
	srv := hubServer(t, hub, "7")

	conn := dial(t, srv)
	time.Sleep(50 * time.Millisecond)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		_, live := hub.sessions["7"]
		hub.mu.Unlock()
		if !live {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("hub still holds session after last client left")
}
