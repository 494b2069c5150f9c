package devices

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinKickass/HomeGateway/internal/config"
	"github.com/KevinKickass/HomeGateway/internal/helios"
	"github.com/KevinKickass/HomeGateway/internal/modbus"
	"github.com/KevinKickass/HomeGateway/internal/storage"
)

func testConfig(address string) config.HeliosConfig {
	return config.HeliosConfig{
		Address:       address,
		UnitID:        180,
		MailboxOffset: 1,
		SettleDelay:   time.Millisecond,
		Timeout:       time.Second,
	}
}

func startManager(t *testing.T, cfg func(*config.HeliosConfig)) (*Manager, *modbus.Simulator, *storage.MemoryStore) {
	t.Helper()

	sim := modbus.NewSimulator(180, 1, nil)
	addr, err := sim.Listen("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })

	sim.Set("v00102", "2")
	sim.Set("v00104", "03.5")
	sim.Set("v00403", "0")

	c := testConfig(addr)
	if cfg != nil {
		cfg(&c)
	}
	store := storage.NewMemoryStore(0)
	m := NewManager(c, ManagerOptions{Store: store}, nil)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { m.Stop(context.Background()) })

	return m, sim, store
}

type changeRecorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *changeRecorder) listen(changes []Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changes)
}

func (r *changeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestManagerReadParameter(t *testing.T) {
	m, sim, store := startManager(t, nil)
	rec := &changeRecorder{}
	m.Subscribe(rec.listen)
	ctx := context.Background()

	v, st := m.ReadParameter(ctx, "VentilationLevel")
	require.Equal(t, helios.Good, st)
	assert.Equal(t, "Level2", v.String())

	e, ok := m.Cache().Get("VentilationLevel")
	require.True(t, ok)
	assert.Equal(t, "Level2", e.Value.String())
	assert.Equal(t, 1, rec.count())

	// unchanged value is not republished
	_, st = m.ReadParameter(ctx, "VentilationLevel")
	require.Equal(t, helios.Good, st)
	assert.Equal(t, 1, rec.count())

	sim.Set("v00102", "3")
	_, st = m.ReadParameter(ctx, "VentilationLevel")
	require.Equal(t, helios.Good, st)
	assert.Equal(t, 2, rec.count())

	history, err := store.History(ctx, "VentilationLevel", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Level3", history[0].Value)
}

func TestManagerWriteParameter(t *testing.T) {
	m, sim, store := startManager(t, nil)
	ctx := context.Background()

	st := m.WriteParameter(ctx, "WeeklyProgramActive", helios.Bool(true), "test")
	require.Equal(t, helios.Good, st)

	v, _ := sim.Value("v00403")
	assert.Equal(t, "o", v)

	e, ok := m.Cache().Get("WeeklyProgramActive")
	require.True(t, ok)
	assert.True(t, e.Value.Bool())

	writes, err := store.RecentWrites(ctx, 1)
	require.NoError(t, err)
	require.Len(t, writes, 1)
	assert.Equal(t, "WeeklyProgramActive", writes[0].Parameter)
	assert.Equal(t, "Good", writes[0].Status)
	assert.Equal(t, "test", writes[0].Source)

	// write-only parameters never enter the cache
	require.Equal(t, helios.Good, m.WriteParameter(ctx, "FilterReset", helios.Bool(true), "test"))
	_, cached := m.Cache().Get("FilterReset")
	assert.False(t, cached)
}

func TestManagerRefresh(t *testing.T) {
	m, _, store := startManager(t, nil)
	rec := &changeRecorder{}
	m.Subscribe(rec.listen)
	var refreshed []Health
	m.OnRefresh(func(h Health) { refreshed = append(refreshed, h) })
	ctx := context.Background()

	summary, err := m.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, refreshed, 1)
	assert.True(t, refreshed[0].Reachable())

	// only seeded readable keys answer, everything else reads back as zeros
	assert.Equal(t, 3, summary.Good())
	assert.Equal(t, summary.Failed(), summary[helios.BadOutOfRange])

	h := m.Health()
	assert.True(t, h.Reachable())
	assert.False(t, h.LastRefresh.IsZero())
	assert.Equal(t, 3, h.Good)

	e, ok := m.Cache().Get("OutdoorAirTemperature")
	require.True(t, ok)
	assert.Equal(t, 3.5, e.Value.Double())

	failed, ok := m.Cache().Get("SupplyAirTemperature")
	require.True(t, ok)
	assert.Equal(t, helios.BadOutOfRange, failed.Status)
	assert.True(t, failed.UpdatedAt.IsZero())

	require.Equal(t, 1, rec.count())
	history, err := store.History(ctx, "OutdoorAirTemperature", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestManagerRefreshExclusive(t *testing.T) {
	m, _, _ := startManager(t, nil)
	m.refreshing.Store(true)
	defer m.refreshing.Store(false)

	_, err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)
}

func TestManagerPoller(t *testing.T) {
	m, _, _ := startManager(t, func(c *config.HeliosConfig) { c.PollInterval = 50 * time.Millisecond })

	require.Eventually(t, func() bool {
		return !m.Health().LastRefresh.IsZero()
	}, 10*time.Second, 20*time.Millisecond)
	assert.True(t, m.Health().Polling)

	require.NoError(t, m.Stop(context.Background()))
	assert.False(t, m.Health().Polling)

	_, st := m.ReadParameter(context.Background(), "VentilationLevel")
	assert.Equal(t, helios.BadInternalError, st, "mailbox is closed after stop")
}
