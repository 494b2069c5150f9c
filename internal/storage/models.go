package storage

import (
	"time"

	"github.com/google/uuid"
)

// Reading is one decoded parameter value as observed by the poller.
type Reading struct {
	ID        uuid.UUID `json:"id"`
	Parameter string    `json:"parameter"`
	Key       string    `json:"key"`
	Kind      string    `json:"kind"`
	Value     string    `json:"value"`
	Status    string    `json:"status"`
	ReadAt    time.Time `json:"read_at"`
}

// WriteRecord is the audit entry of one parameter write.
type WriteRecord struct {
	ID        uuid.UUID `json:"id"`
	Parameter string    `json:"parameter"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Status    string    `json:"status"`
	Source    string    `json:"source"` // rest, grpc, preset:<name>, cli
	WrittenAt time.Time `json:"written_at"`
}

// Auth event types.
const (
	AuthEventTokenIssued   = "token_issued"
	AuthEventTokenRejected = "token_rejected"
)

// AuthEvent is the audit entry of one token request.
type AuthEvent struct {
	ID        uuid.UUID `json:"id"`
	EventType string    `json:"event_type"`
	Client    string    `json:"client"`
	Role      string    `json:"role,omitempty"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
