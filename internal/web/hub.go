package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simracekit/pitwall/internal/telemetry"
)

const clientSendBuffer = 64

// Hub fans accepted samples out to websocket clients. Broadcast never
// blocks: a client whose send buffer is full is dropped, so a stalled
// overlay can never back up the listener goroutine feeding the hub.
type Hub struct {
	logger   telemetry.Logger
	upgrader websocket.Upgrader

	mutex   sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger telemetry.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)

	if err != nil {
		h.logger.WithError(err).Errorf("Could not upgrade websocket connection")
		return
	}

	client := &hubClient{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}

	h.mutex.Lock()

	if h.closed {
		h.mutex.Unlock()
		_ = conn.Close()

		return
	}

	h.clients[client] = struct{}{}
	h.mutex.Unlock()

	h.logger.Debugf("Websocket client connected: %s", conn.RemoteAddr())

	go h.writePump(client)
	go h.readPump(client)
}

// BroadcastSample pushes one accepted sample to every connected client. It
// satisfies telemetry.Observer.
func (h *Hub) BroadcastSample(sample telemetry.Sample) {
	data, err := json.Marshal(sample)

	if err != nil {
		h.logger.WithError(err).Errorf("Could not marshal sample for broadcast")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Client cannot keep up with the feed.
			h.logger.Warnf("Dropping slow websocket client: %s", client.conn.RemoteAddr())
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.clients)
}

// Close drops every client and refuses new connections.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.closed = true

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) writePump(client *hubClient) {
	defer client.conn.Close()

	for data := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

		if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(client)
			return
		}
	}

	_ = client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// readPump drains control frames and notices the client going away.
func (h *Hub) readPump(client *hubClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.remove(client)
			return
		}
	}
}

func (h *Hub) remove(client *hubClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}
