package bacnetsc

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one connected BACnet/SC node, keyed by its claimed device
// ID once the Connect-Request handshake completes.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	deviceID uint32
}

// Hub tracks connected BACnet/SC nodes and enforces device-ID
// uniqueness, adapted from the teacher's broadcast hub: this gateway
// has no broadcast use case, only a registry keyed by device ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint32]*Client
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[uint32]*Client), logger: logger}
}

// Register claims deviceID for c. Fails if another connection already
// holds that device ID (spec.md §4.J: device-ID uniqueness).
func (h *Hub) Register(c *Client, deviceID uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, taken := h.clients[deviceID]; taken {
		return fmt.Errorf("device id %d already connected", deviceID)
	}
	c.deviceID = deviceID
	h.clients[deviceID] = c
	return nil
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.clients[c.deviceID]; ok && existing == c {
		delete(h.clients, c.deviceID)
		close(c.send)
	}
}

// ClientCount returns the number of connected devices.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return
		}
	}
}
