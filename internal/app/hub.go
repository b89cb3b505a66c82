package app

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 16
	writeWait         = time.Second
)

// Envelope is one message pushed to browser clients.
type Envelope struct {
	Type    string `json:"type"` // "frame" or "status"
	Payload any    `json:"payload"`
}

type hubClient struct {
	socket *websocket.Conn
	send   chan []byte
}

// Hub fans frames and status changes out to every connected websocket client.
// New clients first receive the last message of each type.
type Hub struct {
	forward chan []byte
	join    chan *hubClient
	leave   chan *hubClient
	clients map[*hubClient]bool
	done    chan struct{}
	logger  *zap.SugaredLogger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	last map[string][]byte
}

// NewHub makes a hub that is ready to Run.
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		forward: make(chan []byte, messageBufferSize),
		join:    make(chan *hubClient),
		leave:   make(chan *hubClient),
		clients: make(map[*hubClient]bool),
		done:    make(chan struct{}),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  socketBufferSize,
			WriteBufferSize: socketBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		last: make(map[string][]byte),
	}
}

// Run dispatches messages until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return nil
		case c := <-h.join:
			h.clients[c] = true
			h.logger.Debugf("hub: client joined (%d connected)", len(h.clients))
		case c := <-h.leave:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.logger.Debugf("hub: client left (%d connected)", len(h.clients))
		case msg := <-h.forward:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Debugf("hub: client too slow, dropping message")
				}
			}
		}
	}
}

// Broadcast queues an envelope for every client. It drops the message when the
// hub is saturated rather than block the caller.
func (h *Hub) Broadcast(kind string, payload any) {
	data, err := json.Marshal(Envelope{Type: kind, Payload: payload})
	if err != nil {
		h.logger.Errorf("hub: marshal %s: %v", kind, err)
		return
	}

	h.mu.Lock()
	h.last[kind] = data
	h.mu.Unlock()

	select {
	case h.forward <- data:
	default:
		h.logger.Debugf("hub: forward queue full, dropping %s", kind)
	}
}

func (h *Hub) replay() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, 0, len(h.last))
	for _, kind := range []string{"status", "frame"} {
		if data, ok := h.last[kind]; ok {
			out = append(out, data)
		}
	}
	return out
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("hub: upgrade failed: %v", err)
		return
	}
	c := &hubClient{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
	}
	for _, data := range h.replay() {
		c.send <- data
	}

	select {
	case h.join <- c:
	case <-h.done:
		socket.Close()
		return
	}
	go c.write()
	c.read()

	select {
	case h.leave <- c:
	case <-h.done:
	}
}

// read drains client messages until the socket fails.
func (c *hubClient) read() {
	defer c.socket.Close()
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *hubClient) write() {
	defer c.socket.Close()
	for msg := range c.send {
		_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
