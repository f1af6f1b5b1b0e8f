package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types sent over WebSocket.
const (
	EventBattleReport = "battle_report"
	EventEspionage    = "espionage"
	EventArmyReturned = "army_returned"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type       string `json:"type"`
	ProvinceID string `json:"province_id"`
	Data       any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action     string `json:"action"` // "subscribe" or "unsubscribe"
	ProvinceID string `json:"province_id"`
}

// WSConn wraps a WebSocket connection with its player and subscriptions.
type WSConn struct {
	conn     *websocket.Conn
	playerID string
	send     chan []byte
}

// Hub manages WebSocket connections and province-channel subscriptions.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
	provinces   map[string]map[*WSConn]bool // provinceID -> set of connections
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]bool),
		provinces:   make(map[string]map[*WSConn]bool),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection from the hub and all its subscriptions.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, c)
	for provinceID, conns := range h.provinces {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.provinces, provinceID)
		}
	}
	close(c.send)
}

// Subscribe adds a connection to a province channel.
func (h *Hub) Subscribe(c *WSConn, provinceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.provinces[provinceID] == nil {
		h.provinces[provinceID] = make(map[*WSConn]bool)
	}
	h.provinces[provinceID][c] = true
}

// Unsubscribe removes a connection from a province channel.
func (h *Hub) Unsubscribe(c *WSConn, provinceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.provinces[provinceID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.provinces, provinceID)
		}
	}
}

// BroadcastToProvince sends an event to all connections subscribed to a
// province channel.
func (h *Hub) BroadcastToProvince(provinceID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("provinceId", provinceID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.provinces[provinceID] {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("playerId", c.playerID).Str("provinceId", provinceID).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// BroadcastToPlayer sends an event to a specific player across all their
// connections.
func (h *Hub) BroadcastToPlayer(playerID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("playerId", playerID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.connections {
		if c.playerID == playerID {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// ProvinceSubscriberCount returns the number of connections subscribed to a
// province channel.
func (h *Hub) ProvinceSubscriberCount(provinceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.provinces[provinceID])
}
