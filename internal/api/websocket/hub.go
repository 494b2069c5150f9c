package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/auth"
	"github.com/KevinKickass/HomeGateway/internal/devices"
)

// Hub maintains active WebSocket clients and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	done chan struct{}

	mu sync.RWMutex

	logger *zap.Logger

	authService *auth.Service
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger, authService *auth.Service) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		broadcast:   make(chan Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		clients:     make(map[*Client]bool),
		logger:      logger,
		authService: authService,
	}
}

// Run starts the hub's main event loop. It returns when ctx is cancelled and
// disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket Hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client registered",
				zap.String("remote_addr", client.remoteAddr()),
				zap.Int("total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				h.logger.Info("WebSocket client unregistered",
					zap.String("remote_addr", client.remoteAddr()),
					zap.Int("total_clients", len(h.clients)))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.dispatch(message)
		}
	}
}

func (h *Hub) dispatch(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	params, filterable := message.Data.([]ParameterData)

	for client := range h.clients {
		payload := data
		if filterable && client.filtered() {
			subset := client.filter(params)
			if len(subset) == 0 {
				continue
			}
			if payload, err = json.Marshal(Message{Type: message.Type, Timestamp: message.Timestamp, Data: subset}); err != nil {
				continue
			}
		}

		if !client.enqueue(payload) {
			// Client send channel full - unregister slow/dead client
			client.closeSend()
			delete(h.clients, client)
			h.logger.Warn("Client send buffer full, unregistering",
				zap.String("remote_addr", client.remoteAddr()))
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Hub broadcast channel full, message dropped",
			zap.String("message_type", string(msg.Type)))
	}
}

// PublishChanges is a devices.ChangeListener.
func (h *Hub) PublishChanges(changes []devices.Change) {
	if len(changes) == 0 {
		return
	}
	h.Broadcast(NewParameterMessage(changes))
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
