package live

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans graph mutation events out to the WebSocket subscribers of each
// flow. Safe for concurrent use.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]bool // flow id -> connections
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]bool)}
}

// Broadcast sends the event to every subscriber of its flow. Write
// failures drop the subscriber.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[ev.FlowID] {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("live: dropping subscriber of flow %s: %v", ev.FlowID, err)
			conn.Close()
			delete(h.conns[ev.FlowID], conn)
		}
	}
}

// SubscriberCount returns the number of active subscribers for a flow.
func (h *Hub) SubscriberCount(flowID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[flowID])
}

func (h *Hub) add(flowID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[flowID] == nil {
		h.conns[flowID] = make(map[*websocket.Conn]bool)
	}
	h.conns[flowID][conn] = true
}

func (h *Hub) remove(flowID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[flowID], conn)
}

// ServeFlow upgrades the request to a WebSocket and subscribes it to the
// given flow until the peer disconnects.
func (h *Hub) ServeFlow(flowID string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live: websocket upgrade: %v", err)
		return
	}
	h.add(flowID, conn)
	defer func() {
		h.remove(flowID, conn)
		conn.Close()
	}()

	// The feed is one-way; reads only detect disconnection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("live: websocket read: %v", err)
			}
			return
		}
	}
}
