package system

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinKickass/HomeGateway/internal/config"
	"github.com/KevinKickass/HomeGateway/internal/devices"
	"github.com/KevinKickass/HomeGateway/internal/modbus"
)

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(StateInitializing, StateRunning))
	assert.NoError(t, ValidateTransition(StateRunning, StateStopping))
	assert.NoError(t, ValidateTransition(StateStopping, StateStopped))
	assert.NoError(t, ValidateTransition(StateError, StateStopping))
	assert.NoError(t, ValidateTransition(StateRunning, StateDegraded))
	assert.NoError(t, ValidateTransition(StateDegraded, StateRunning))
	assert.Error(t, ValidateTransition(StateInitializing, StateDegraded))
	assert.Error(t, ValidateTransition(StateStopped, StateRunning))
	assert.Error(t, ValidateTransition(StateRunning, StateInitializing))
	assert.Error(t, ValidateTransition(SystemState(42), StateRunning))
	assert.Equal(t, "UNKNOWN", SystemState(42).String())
}

func TestTrackReachability(t *testing.T) {
	cfg := &config.Config{
		Helios: config.HeliosConfig{
			Address:     "127.0.0.1:1",
			UnitID:      180,
			SettleDelay: time.Millisecond,
			Timeout:     time.Second,
		},
	}
	lm, err := NewLifecycleManager(cfg, nil, Options{}, nil)
	require.NoError(t, err)

	// ignored before the system runs
	lm.trackReachability(devices.Health{Failed: 3})
	assert.Equal(t, StateInitializing, lm.State())

	lm.setState(StateRunning)
	lm.trackReachability(devices.Health{Failed: 3})
	assert.Equal(t, StateDegraded, lm.State())
	assert.Equal(t, "DEGRADED", lm.GetCurrentStatus().State)

	lm.trackReachability(devices.Health{Good: 1})
	assert.Equal(t, StateRunning, lm.State())
}

func TestLifecycleStartAndShutdown(t *testing.T) {
	sim := modbus.NewSimulator(180, 1, nil)
	addr, err := sim.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer sim.Close()
	sim.Set("v00102", "1")

	cfg := &config.Config{
		Server: config.ServerConfig{ShutdownTimeout: 5 * time.Second},
		Helios: config.HeliosConfig{
			Address:       addr,
			UnitID:        180,
			MailboxOffset: 1,
			SettleDelay:   time.Millisecond,
			Timeout:       time.Second,
			PollInterval:  time.Hour,
		},
		Presets: config.PresetsConfig{SearchPaths: []string{t.TempDir()}},
		Metrics: config.MetricsConfig{Enabled: true},
	}

	lm, err := NewLifecycleManager(cfg, nil, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateInitializing, lm.State())

	require.NoError(t, lm.Start(context.Background()))
	assert.Equal(t, StateRunning, lm.State())
	require.NotNil(t, lm.GRPCAddr())

	// the poller runs one full read right away
	require.Eventually(t, func() bool {
		return lm.GetCurrentStatus().Device.Reachable()
	}, 10*time.Second, 20*time.Millisecond)

	status := lm.GetCurrentStatus()
	assert.Equal(t, "RUNNING", status.State)
	assert.NotZero(t, status.StartedAt)

	w := httptest.NewRecorder()
	lm.RESTHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "homegateway_helios_poll_parameters")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, lm.Shutdown(ctx))
	assert.Equal(t, StateStopped, lm.State())

	select {
	case <-lm.Done():
	default:
		t.Fatal("done channel not closed")
	}

	// second shutdown is a no-op
	assert.NoError(t, lm.Shutdown(ctx))
}
