package intervalz

import (
	"context"
	"time"
)

// Flag is a boolean owned by the host and read at the end of every cycle.
// *atomic.Bool satisfies it.
type Flag interface {
	Load() bool
}

// CycleEnd describes when a cycle is over.
type CycleEnd struct {
	delay     time.Duration
	items     []Item
	fromItems bool
}

// EndAfterItems ends the cycle at the delay of the last item of the list,
// plus the extra delay given to ScheduleResetCycle. An empty list ends at the
// extra delay.
func EndAfterItems(items []Item) CycleEnd {
	return CycleEnd{items: items, fromItems: true}
}

// EndAfter ends the cycle after d. The extra delay does not apply.
func EndAfter(d time.Duration) CycleEnd {
	return CycleEnd{delay: d}
}

// LastDelay returns the offset of the end of the cycle. Negative results are
// clamped to zero.
func (c CycleEnd) LastDelay(extraDelay time.Duration) time.Duration {
	d := c.delay
	if c.fromItems {
		d = extraDelay
		if n := len(c.items); n > 0 {
			d += c.items[n-1].Delay
		}
	}
	return max(d, 0)
}

// ScheduleResetCycle waits for the end of the current cycle and then decides
// whether to loop. The decision reads repeat once, when the cycle's one-shot
// timer finishes, whether it fired or was cancelled; onReset runs only if
// repeat is true at that moment.
//
// Run on its own, onReset races the pipelines of the cycle. Loop orders the
// two: it waits for the cycle's pipelines to deliver everything due by the
// end before it acts on the decision.
//
// The returned subscription starts immediately. Release it through the
// cycle's Subscriptions so ResetPriorSubscriptions can cancel the timer.
//
// Example:
//
//	var repeat atomic.Bool
//	repeat.Store(true)
//	subs = intervalz.ResetPriorSubscriptions(subs)
//	subs.Add(engine.ScheduleResetCycle(ctx, intervalz.EndAfterItems(items),
//		&repeat, 500*time.Millisecond, restart))
func (e *Engine) ScheduleResetCycle(ctx context.Context, end CycleEnd, repeat Flag, extraDelay time.Duration, onReset func()) *Subscription {
	lastDelay := end.LastDelay(extraDelay)
	cycle := newSchedule([]Item{{Key: KeyReset, ID: KeyReset, Delay: lastDelay}}, e.clock, nil)
	take := NewTake[Item](1)

	fired := false
	finalize := func() {
		again := repeat != nil && repeat.Load()
		e.logger.Debug("cycle finished",
			"engine", e.id,
			"last_delay", lastDelay,
			"fired", fired,
			"repeat", again)

		if !again {
			e.metrics.cycle(CycleOutcomeStopped)
			return
		}
		e.metrics.cycle(CycleOutcomeReset)
		if onReset != nil {
			onReset()
		}
	}

	return subscribe(ctx, func(ctx context.Context) <-chan Item {
		return take.Process(ctx, cycle.Process(ctx))
	}, func(Item) {
		fired = true
	}, finalize)
}
