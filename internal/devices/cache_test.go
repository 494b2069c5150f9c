package devices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinKickass/HomeGateway/internal/helios"
)

func TestCacheKeepsLastGoodValue(t *testing.T) {
	c := NewCache()
	desc, err := helios.Default.Descriptor("OutdoorAirTemperature")
	require.NoError(t, err)
	t0 := time.Now()

	ch, changed := c.Update(desc, helios.Double(4.5), helios.Good, t0)
	require.True(t, changed)
	assert.Equal(t, "OutdoorAirTemperature", ch.Name)
	assert.False(t, ch.Previous.IsValid())

	_, changed = c.Update(desc, helios.Double(0), helios.BadCommunicationError, t0.Add(time.Second))
	assert.False(t, changed)

	e, ok := c.Get("OutdoorAirTemperature")
	require.True(t, ok)
	assert.Equal(t, 4.5, e.Value.Double())
	assert.Equal(t, helios.BadCommunicationError, e.Status)
	assert.Equal(t, t0, e.UpdatedAt)
	assert.Equal(t, t0.Add(time.Second), e.CheckedAt)

	_, changed = c.Update(desc, helios.Double(4.5), helios.Good, t0.Add(2*time.Second))
	assert.False(t, changed)

	ch, changed = c.Update(desc, helios.Double(5.0), helios.Good, t0.Add(3*time.Second))
	require.True(t, changed)
	assert.Equal(t, 4.5, ch.Previous.Double())
	assert.Equal(t, 1, c.Len())
}

func TestCacheMergeSkipsUnreadParameters(t *testing.T) {
	c := NewCache()
	snap := helios.NewSnapshot(helios.Default)
	snap.ReadAt = time.Now()

	changes := c.Merge(helios.Default, snap)

	assert.Empty(t, changes)
	assert.Zero(t, c.Len())
}
