package intervalz

import (
	"context"
	"sync"
	"time"
)

// cycleScope bounds the pipelines a Loop starts for one run of its schedule.
//
// When a cycle ends, every Schedule subscribed under it still emits the items
// due by the horizon and then closes instead of waiting for cancellation.
// Accumulators drop the triggers that would fire past the horizon, so the
// pipelines reading those schedules complete on their own. The Loop drains
// them before it releases the cycle, which guarantees the host sees every
// emission due at or before the end.
type cycleScope struct {
	horizon time.Duration
	ended   chan struct{}
	once    sync.Once

	mu      sync.Mutex
	tracked map[*Subscription]struct{}
}

type cycleKey struct{}

type subscriptionKey struct{}

func newCycle(horizon time.Duration) *cycleScope {
	return &cycleScope{
		horizon: horizon,
		ended:   make(chan struct{}),
		tracked: make(map[*Subscription]struct{}),
	}
}

func withCycle(ctx context.Context, c *cycleScope) context.Context {
	return context.WithValue(ctx, cycleKey{}, c)
}

// cycleFrom returns the cycle ctx runs under, or nil.
func cycleFrom(ctx context.Context) *cycleScope {
	c, _ := ctx.Value(cycleKey{}).(*cycleScope)
	return c
}

// over is closed once the cycle is over. A nil cycle never ends.
func (c *cycleScope) over() <-chan struct{} {
	if c == nil {
		return nil
	}
	return c.ended
}

// beyond reports whether an emission at offset d falls after the horizon.
func (c *cycleScope) beyond(d time.Duration) bool {
	return d > c.horizon
}

func (c *cycleScope) end() {
	c.once.Do(func() { close(c.ended) })
}

// track registers the subscription whose pipeline ctx belongs to, so the
// cycle waits for it when it ends.
func (c *cycleScope) track(ctx context.Context) {
	sub, ok := ctx.Value(subscriptionKey{}).(*Subscription)
	if c == nil || !ok {
		return
	}
	c.mu.Lock()
	c.tracked[sub] = struct{}{}
	c.mu.Unlock()
}

// drain waits until every tracked subscription has wound down.
func (c *cycleScope) drain(ctx context.Context) error {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.tracked))
	for sub := range c.tracked {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		select {
		case <-sub.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
