package devices

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPollerFirstRefreshImmediate(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, time.Hour, zap.NewNop())

	require.NoError(t, p.Start())
	require.NoError(t, p.Start(), "second start is a no-op")
	assert.True(t, p.IsRunning())

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.IsRunning())
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollerStopCancelsRefresh(t *testing.T) {
	entered := make(chan struct{})
	p := NewPoller(func(ctx context.Context) error {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	}, time.Hour, zap.NewNop())

	require.NoError(t, p.Start())
	<-entered

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not cancel the running refresh")
	}
	assert.False(t, p.IsRunning())
}

func TestPollerKeepsPollingAfterFailure(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("unreachable")
	}, 10*time.Millisecond, zap.NewNop())

	require.NoError(t, p.Start())
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 5*time.Second, 5*time.Millisecond)
}
