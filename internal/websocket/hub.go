package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	// Incoming client messages allowed per second
	maxMessagesPerSecond = 10

	sendBufferSize = 32

	EventOrderStatus = "order_status"
	EventPong        = "pong"
)

// ClientMessage is what a browser may send; only "ping" is understood.
type ClientMessage struct {
	Type string `json:"type"`
}

// OrderEvent is pushed to every session of the order's customer.
type OrderEvent struct {
	Type       string            `json:"type"`
	OrderID    uint              `json:"order_id"`
	Status     model.OrderStatus `json:"status"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Client is one websocket session of a signed-in user.
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

type directMessage struct {
	userID  uint
	payload []byte
}

// Hub tracks live sessions per user. A user may hold several sessions, one
// per device or tab, and every one of them receives the user's events.
type Hub struct {
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	direct     chan directMessage

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		direct:     make(chan directMessage, 1024),
	}
}

// Run serves registrations and deliveries until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.direct:
			h.deliver(msg)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	clientList, ok := h.clients[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}

	remaining := make([]*Client, 0, len(clientList))
	found := false
	for _, c := range clientList {
		if c == client {
			found = true
			continue
		}
		remaining = append(remaining, c)
	}
	if len(remaining) == 0 {
		delete(h.clients, client.UserID)
	} else {
		h.clients[client.UserID] = remaining
	}
	if found {
		close(client.Send)
	}
	h.mu.Unlock()

	if found {
		logger.Info("WebSocket client unregistered", map[string]interface{}{
			"user_id":            client.UserID,
			"remaining_sessions": len(remaining),
		})
	}
}

func (h *Hub) deliver(msg directMessage) {
	h.mu.RLock()
	clientList := h.clients[msg.userID]
	var stalled []*Client
	for _, client := range clientList {
		select {
		case client.Send <- msg.payload:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
			"user_id": msg.userID,
		})
		h.remove(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clientList := range h.clients {
		for _, client := range clientList {
			close(client.Send)
		}
		delete(h.clients, userID)
	}
}

// SendToUser queues payload for every session of userID. Messages for
// offline users, or sent while the queue is full, are dropped.
func (h *Hub) SendToUser(userID uint, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal websocket message", err, nil)
		return err
	}

	select {
	case h.direct <- directMessage{userID: userID, payload: data}:
	default:
		logger.Warn("Delivery queue full, message dropped", map[string]interface{}{
			"user_id": userID,
		})
	}
	return nil
}

// NotifyOrderStatus pushes an order's current status to its customer.
func (h *Hub) NotifyOrderStatus(userID uint, order *model.Order) {
	event := OrderEvent{
		Type:       EventOrderStatus,
		OrderID:    order.ID,
		Status:     order.Status,
		TotalPrice: order.TotalPrice,
		UpdatedAt:  order.UpdatedAt,
	}
	if err := h.SendToUser(userID, event); err != nil {
		logger.Error("Failed to queue order notification", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": order.ID,
		})
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// SessionCount returns the number of live sessions across all users.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clientList := range h.clients {
		n += len(clientList)
	}
	return n
}

// allow reports whether the client is still within its per-second budget.
func (c *Client) allow(now time.Time) bool {
	c.rateMu.Lock()
	defer c.rateMu.Unlock()
	if now.Sub(c.lastResetTime) >= time.Second {
		c.messageCount = 0
		c.lastResetTime = now
	}
	c.messageCount++
	return c.messageCount <= maxMessagesPerSecond
}

// HandleClientMessage answers pings. Anything else is logged and ignored.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	if !client.allow(time.Now()) {
		logger.Warn("WebSocket rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		if err := h.SendToUser(client.UserID, ClientMessage{Type: EventPong}); err != nil {
			logger.Error("Failed to answer ping", err, map[string]interface{}{
				"user_id": client.UserID,
			})
		}
	}
}
