package coordinator

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is served from the same origin or behind a reverse proxy
	},
}

// Hub maintains the set of connected dashboard clients and fans out
// telemetry about ingested distinguished points and collisions.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Run drains the broadcast channel and fans each message out to every
// connected client, dropping clients whose write deadline expires.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Hub] write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades a GET /api/v1/stream request to a websocket and
// registers it for broadcast.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Hub] upgrade failed: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mutex.Unlock()
	log.Printf("[Hub] client connected, total=%d", n)

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			n := len(h.clients)
			h.mutex.Unlock()
			conn.Close()
			log.Printf("[Hub] client disconnected, total=%d", n)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[Hub] read error: %v", err)
				}
				break
			}
		}
	}()
}

// Broadcast enqueues a JSON payload for delivery to every connected client.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		log.Printf("[Hub] broadcast buffer full, dropping message")
	}
}
