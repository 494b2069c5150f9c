package interfaces

import (
	"context"

	"github.com/KevinKickass/HomeGateway/internal/config"
	"github.com/KevinKickass/HomeGateway/internal/devices"
	"github.com/KevinKickass/HomeGateway/internal/presets"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string         `json:"state"`
	StartedAt        int64          `json:"started_at,omitempty"`
	Device           devices.Health `json:"device"`
	MailboxState     string         `json:"mailbox_state"`
	ConnectedClients int            `json:"connected_clients"`
	Error            string         `json:"error,omitempty"`
}

// LifecycleManager is what the API servers need from the running system.
type LifecycleManager interface {
	Config() *config.Config
	DeviceManager() *devices.Manager
	Presets() *presets.Loader
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
