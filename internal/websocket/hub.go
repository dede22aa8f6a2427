package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	EventTypeBillCreated EventType = "bill_created"
	EventTypeBillPaid    EventType = "bill_paid"
	EventTypeBillDue     EventType = "bill_due"
	EventTypeError       EventType = "error"
)

// WSEvent represents a WebSocket event sent to clients
type WSEvent struct {
	Type  EventType   `json:"type"`
	Bill  interface{} `json:"bill,omitempty"`
	Error string      `json:"error,omitempty"`
}

// BillPayload is the bill summary carried by bill events
type BillPayload struct {
	ID       uint     `json:"id"`
	Title    string   `json:"title"`
	Amount   *float64 `json:"amount,omitempty"`
	DueDate  string   `json:"due_date,omitempty"`
	Status   string   `json:"status"`
	Filename string   `json:"filename"`
}

// Hub maintains the set of active clients and delivers bill events to
// the owning user's connections.
type Hub struct {
	// Connected clients grouped by user ID
	clients map[uint]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Events to deliver to a user's clients
	events chan *userEvent

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger
}

type userEvent struct {
	userID  uint
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *userEvent, 256),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered",
					slog.String("client_id", client.id),
					slog.Uint64("user_id", uint64(client.userID)))
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.userID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
					if len(conns) == 0 {
						delete(h.clients, client.userID)
					}
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered",
					slog.String("client_id", client.id),
					slog.Uint64("user_id", uint64(client.userID)))
			}

		case ev := <-h.events:
			h.mu.RLock()
			for client := range h.clients[ev.userID] {
				select {
				case client.send <- ev.message:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// PublishBillEvent delivers a bill event to every connection the owning
// user currently has open.
func (h *Hub) PublishBillEvent(userID uint, eventType EventType, payload *BillPayload) {
	msg := WSEvent{
		Type: eventType,
		Bill: payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal bill event", slog.Any("error", err))
		}
		return
	}

	h.events <- &userEvent{
		userID:  userID,
		message: data,
	}
}
