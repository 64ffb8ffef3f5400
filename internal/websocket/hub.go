package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Transaction event actions.
const (
	ActionCreated  = "created"
	ActionRedeemed = "redeemed"
	ActionExpired  = "expired"
)

// Message is a ledger event pushed to subscribed clients. ShopID scopes delivery:
// a client subscribed to a shop only sees that shop's events.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	ShopID int64          `json:"shop_id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id, shopID int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		ShopID: shopID,
		Extra:  extra,
	}
}

// NewTransactionMessage builds a transaction event. codeID is only attached when
// non-empty; expiry sweeps never know the plain code.
func NewTransactionMessage(action string, id, shopID int64, points int, codeID string) Message {
	extra := map[string]any{"shop_id": shopID, "points": points}
	if codeID != "" {
		extra["code_id"] = codeID
	}
	return NewMessage("transaction", action, id, shopID, extra)
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client subscribed to the message's shop.
// Clients with no shop filter receive everything.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.shopID != 0 && c.shopID != msg.ShopID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than block the ledger
			h.logger.Warn("dropping event for slow client", "type", msg.Type, "shop_id", c.shopID)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
