package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
	"gitlab.com/tinyland/lab/host-pulse/sampler"
	"gitlab.com/tinyland/lab/host-pulse/telemetry"
)

const (
	// clientBuffer is the per-client frame queue; a browser that stops
	// reading loses frames, the hub never waits for it.
	clientBuffer = 16
	// writeTimeout bounds a single websocket write.
	writeTimeout = 5 * time.Second
)

// Hub fans each pipeline snapshot out to every connected websocket
// client as a JSON text frame.
type Hub struct {
	logger *slog.Logger
	pipe   *sampler.Pipeline

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	sub  <-chan metrics.Snapshot
	done chan struct{}
}

// client is one websocket connection with its outbound frame queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub(pipe *sampler.Pipeline, logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		pipe:   pipe,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard carries no credentials; any origin may read it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		sub:     pipe.Subscribe(),
		done:    make(chan struct{}),
	}
}

// run forwards snapshots to the clients until the subscription closes.
func (h *Hub) run() {
	defer close(h.done)

	for snap := range h.sub {
		payload, err := json.Marshal(snap)
		if err != nil {
			h.logger.Error("marshal snapshot for websocket", "error", err)
			continue
		}
		h.broadcast(payload)
	}
	h.closeAll()
}

// stop ends the broadcast loop and disconnects every client.
func (h *Hub) stop() {
	h.pipe.Unsubscribe(h.sub)
	<-h.done
}

// broadcast queues one frame on every client. A client whose queue is
// full loses the frame; the hub never blocks on a slow reader.
func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// handleWS upgrades the connection and pumps frames until the client
// goes away.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	// Seed the new client with the latest snapshot so the page renders
	// without waiting out a cycle.
	if snap, ok := h.pipe.Latest(); ok {
		if payload, err := json.Marshal(snap); err == nil {
			c.send <- payload
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	telemetry.WebsocketClients.Inc()
	h.logger.Debug("websocket client connected", "remote", r.RemoteAddr, "clients", count)

	go c.writePump()
	c.readPump()

	h.drop(c)
	h.logger.Debug("websocket client disconnected", "remote", r.RemoteAddr)
}

// drop removes a client and closes its queue exactly once.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if present {
		telemetry.WebsocketClients.Dec()
	}
	c.conn.Close()
}

// closeAll disconnects every client, used when the hub shuts down.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
}

// clientCount reports the connected clients, for the health endpoint.
func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// readPump discards inbound messages; it exists to notice the close.
func (c *client) readPump() {
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump writes queued frames until the queue closes, then sends the
// close frame.
func (c *client) writePump() {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
