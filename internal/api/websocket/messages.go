package websocket

import (
	"time"

	"github.com/KevinKickass/HomeGateway/internal/devices"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Parameter messages
	MessageTypeParameterChanged MessageType = "parameter_changed"
	MessageTypeRefreshCompleted MessageType = "refresh_completed"

	// Session messages
	MessageTypeAuthSuccess MessageType = "auth_success"
	MessageTypeAuthFailed  MessageType = "auth_failed"
	MessageTypeSubscribed  MessageType = "subscribed"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ParameterData is one changed parameter
type ParameterData struct {
	Name     string      `json:"name"`
	Key      string      `json:"key"`
	Kind     string      `json:"kind"`
	Value    interface{} `json:"value"`
	Previous interface{} `json:"previous,omitempty"`
	At       time.Time   `json:"at"`
}

// clientRequest is what a client may send after the handshake.
type clientRequest struct {
	Type       string   `json:"type"`
	Token      string   `json:"token,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewParameterMessage(changes []devices.Change) Message {
	data := make([]ParameterData, 0, len(changes))
	for _, ch := range changes {
		p := ParameterData{
			Name:  ch.Name,
			Key:   ch.Key,
			Kind:  ch.Value.Kind().String(),
			Value: ch.Value.Interface(),
			At:    ch.At,
		}
		if ch.Previous.IsValid() {
			p.Previous = ch.Previous.Interface()
		}
		data = append(data, p)
	}
	return NewMessage(MessageTypeParameterChanged, data)
}
