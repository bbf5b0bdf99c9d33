package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/stableview/stableview/internal/clock"
)

// IntervalGate enforces a minimum spacing between dispatches. It is a
// leaky-bucket-of-one: callers are delayed until at least the configured
// interval has passed since the previous dispatch, with no bursting.
//
// The gate is shared across every price lookup in the process. It is owned by
// the composition root and injected into the price client; the spacing holds
// only within a single process instance.
type IntervalGate struct {
	mu           sync.Mutex
	clk          clock.Clock
	minInterval  time.Duration
	lastDispatch time.Time
}

func NewIntervalGate(clk clock.Clock, minInterval time.Duration) *IntervalGate {
	return &IntervalGate{
		clk:         clk,
		minInterval: minInterval,
	}
}

// Wait blocks until the caller may dispatch, then records the dispatch time.
// Returns early with the context error when ctx is canceled.
func (g *IntervalGate) Wait(ctx context.Context) error {
	if g == nil || g.minInterval <= 0 {
		return ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	if !g.lastDispatch.IsZero() {
		if wait := g.minInterval - now.Sub(g.lastDispatch); wait > 0 {
			g.clk.Sleep(ctx, wait)
			if err := ctx.Err(); err != nil {
				return err
			}
			now = g.clk.Now()
		}
	}
	g.lastDispatch = now
	return nil
}

// LastDispatch reports the timestamp of the most recent dispatch.
func (g *IntervalGate) LastDispatch() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastDispatch
}
