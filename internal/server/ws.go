package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gauntlet-run/gauntlet/internal/logging"
)

// progressEvent is one message on the progress stream.
type progressEvent struct {
	Event   string `json:"event"`
	ID      string `json:"id,omitempty"`
	Verdict string `json:"verdict,omitempty"`
}

// hub fans progress events out to connected websocket clients.
type hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

func newHub() *hub {
	return &hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Read loop exists only to notice the peer going away.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends v to every connected client, dropping clients whose
// writes fail. Writes are serialized under the hub lock; gorilla conns do
// not support concurrent writers.
func (h *hub) Broadcast(v interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if err := c.WriteJSON(v); err != nil {
			delete(h.clients, c)
			c.Close()
		}
	}
}
