package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/auth"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Time allowed for the auth message
	authWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Send channel buffer size
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the gateway runs on the home LAN behind token auth
		return true
	},
}

// Client represents a WebSocket client connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	authenticated bool
	permissions   []auth.Permission

	subMu      sync.RWMutex
	parameters map[string]bool // nil means all parameters
}

func (c *Client) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// enqueue hands data to the write pump. It reports false when the buffer is
// full.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) filtered() bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.parameters != nil
}

func (c *Client) filter(params []ParameterData) []ParameterData {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	out := make([]ParameterData, 0, len(params))
	for _, p := range params {
		if c.parameters[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

func (c *Client) subscribe(names []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if len(names) == 0 {
		c.parameters = nil
		return
	}
	c.parameters = make(map[string]bool, len(names))
	for _, n := range names {
		c.parameters[n] = true
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	registered := false
	defer func() {
		if registered {
			c.hub.leave(c)
		} else {
			c.closeSend()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if !c.hub.authService.Enabled() {
		c.authenticated = true
		c.permissions = []auth.Permission{auth.PermRead, auth.PermWrite}
		if registered = c.hub.join(c); !registered {
			return
		}
		c.sendAuthSuccess()
	} else {
		c.conn.SetReadDeadline(time.Now().Add(authWait))
	}

	for {
		var req clientRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.Error(err),
					zap.String("remote_addr", c.remoteAddr()))
			}
			return
		}

		// First message MUST be authentication
		if !c.authenticated {
			if req.Type != "auth" || req.Token == "" {
				c.sendAuthFailed("first message must be an auth message with a token")
				return
			}

			permissions, err := c.hub.authService.ValidateToken(req.Token)
			if err != nil {
				c.logger.Warn("WebSocket authentication failed",
					zap.Error(err),
					zap.String("remote_addr", c.remoteAddr()))
				c.sendAuthFailed("invalid or expired token")
				return
			}

			c.authenticated = true
			c.permissions = permissions
			c.conn.SetReadDeadline(time.Time{})

			if registered = c.hub.join(c); !registered {
				return
			}
			c.sendAuthSuccess()
			c.logger.Info("WebSocket client authenticated",
				zap.String("remote_addr", c.remoteAddr()),
				zap.Any("permissions", permissions))
			continue
		}

		c.handleMessage(req)
	}
}

func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) sendAuthSuccess() {
	c.sendMessage(NewMessage(MessageTypeAuthSuccess, map[string]interface{}{
		"permissions": c.permissions,
	}))
}

// sendAuthFailed writes directly; the write pump is stopped right after.
func (c *Client) sendAuthFailed(reason string) {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteJSON(NewMessage(MessageTypeAuthFailed, map[string]interface{}{
		"reason": reason,
	}))
}

func (c *Client) handleMessage(req clientRequest) {
	switch req.Type {
	case "subscribe":
		c.subscribe(req.Parameters)
		c.sendMessage(NewMessage(MessageTypeSubscribed, map[string]interface{}{
			"parameters": req.Parameters,
		}))
	default:
		c.logger.Debug("Ignoring client message",
			zap.String("remote_addr", c.remoteAddr()),
			zap.String("type", req.Type))
	}
}

// writePump handles writing messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles WebSocket upgrade requests
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade error",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: hub.logger,
	}

	go client.writePump()
	go client.readPump()
}
