package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stableview/stableview/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalGateSpacing(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	gate := NewIntervalGate(clk, 50*time.Millisecond)
	ctx := context.Background()

	var dispatches []time.Time
	for i := 0; i < 5; i++ {
		require.NoError(t, gate.Wait(ctx))
		dispatches = append(dispatches, gate.LastDispatch())
	}

	for i := 1; i < len(dispatches); i++ {
		gap := dispatches[i].Sub(dispatches[i-1])
		assert.GreaterOrEqual(t, gap, 50*time.Millisecond,
			"dispatch %d followed too closely", i)
	}
}

func TestIntervalGateNoDelayWhenSpaced(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	gate := NewIntervalGate(clk, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, gate.Wait(ctx))
	first := gate.LastDispatch()

	clk.Advance(time.Second)
	require.NoError(t, gate.Wait(ctx))
	second := gate.LastDispatch()

	assert.Equal(t, time.Second, second.Sub(first),
		"an already-spaced caller must not be delayed further")
}

func TestIntervalGateCanceledContext(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	gate := NewIntervalGate(clk, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, gate.Wait(ctx))

	cancel()
	err := gate.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIntervalGateZeroInterval(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	gate := NewIntervalGate(clk, 0)

	assert.NoError(t, gate.Wait(context.Background()))
}
