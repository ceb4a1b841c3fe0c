package intervalz

import (
	"cmp"
	"context"
	"slices"
	"time"
)

// Schedule is a lazy timed sequence of tagged items. Nothing happens until
// Process is called; every call is an independent subscription with its own
// timers.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Schedule struct {
	name    string
	items   []Item
	ordered []Item
	clock   Clock
	metrics *Metrics
}

func newSchedule(items []Item, clock Clock, metrics *Metrics) *Schedule {
	ordered := slices.Clone(items)
	slices.SortStableFunc(ordered, func(a, b Item) int {
		return cmp.Compare(a.Delay, b.Delay)
	})
	return &Schedule{
		name:    "schedule",
		items:   items,
		ordered: ordered,
		clock:   clock,
		metrics: metrics,
	}
}

// NewSchedule builds a Schedule from items that are already tagged.
// Most callers want Engine.Schedule instead.
func NewSchedule(items []Item, clock Clock) (*Schedule, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	return newSchedule(slices.Clone(items), clock, nil), nil
}

// WithName sets a custom name for this schedule.
func (s *Schedule) WithName(name string) *Schedule {
	s.name = name
	return s
}

// Items returns the tagged items in input order.
func (s *Schedule) Items() []Item {
	return slices.Clone(s.items)
}

// Process starts one subscription. Each item is emitted once its delay has
// elapsed, in ascending delay order; items sharing a delay keep their input
// order. The output never closes on its own: it closes when ctx is
// cancelled, and no item is emitted once the cancellation is observed.
//
// Under a Loop cycle the output also closes when the cycle ends, right after
// the items due by the cycle's horizon.
func (s *Schedule) Process(ctx context.Context) <-chan Item {
	out := make(chan Item)
	c := cycleFrom(ctx)
	c.track(ctx)

	// Timers are registered before returning so the schedule is anchored to
	// the moment of subscription.
	due := make([]chan struct{}, len(s.ordered))
	timers := make([]Timer, 0, len(s.ordered))
	for i, it := range s.ordered {
		ch := make(chan struct{})
		due[i] = ch
		if it.Delay <= 0 {
			close(ch)
			continue
		}
		timers = append(timers, s.clock.AfterFunc(it.Delay, func() { close(ch) }))
	}

	go func() {
		defer close(out)
		defer func() {
			for _, t := range timers {
				t.Stop()
			}
		}()

		ending := c.over()
		ended := false

		for i, it := range s.ordered {
			if !s.await(ctx, due[i], &ending, &ended, c, it.Delay) {
				return
			}

			if ctx.Err() != nil {
				return
			}

			select {
			case out <- it:
				s.metrics.emitted(it.Key)
			case <-ctx.Done():
				return
			}
		}

		if ended {
			return
		}
		select {
		case <-ctx.Done():
		case <-ending:
		}
	}()

	return out
}

// await blocks until the item at delay d is due. It reports false when the
// subscription is over: ctx is done, or the cycle has ended and d lies past
// its horizon.
func (*Schedule) await(ctx context.Context, due <-chan struct{}, ending *<-chan struct{}, ended *bool, c *cycleScope, d time.Duration) bool {
	for {
		if *ended && c.beyond(d) {
			return false
		}
		select {
		case <-due:
			return true
		case <-*ending:
			*ending, *ended = nil, true
		case <-ctx.Done():
			return false
		}
	}
}

// Name returns the schedule name for debugging and monitoring.
func (s *Schedule) Name() string {
	return s.name
}
