package intervalz

import (
	"context"
	"strconv"
)

// GroupAccumulator folds a stream of single items and item groups into a
// Collection. A group is stored as one unit: every member takes the highest
// delay of the group, so later removal triggers evict the group together.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type GroupAccumulator struct {
	name    string
	config  GroupConfig
	clock   Clock
	metrics *Metrics
}

// NewGroupAccumulator creates a processor for grouped streams.
// It supports RemoveAfterTime and RemoveOnKey only; exclusion by id and the
// close trigger are not available here.
//
// Example:
//
//	acc := intervalz.NewGroupAccumulator(intervalz.GroupConfig{
//		RemoveAfterTime: time.Second,
//	}, intervalz.RealClock)
//
//	in <- intervalz.Group(car, trailer)
//	in <- intervalz.Single(bike)
//	snapshots := acc.Process(ctx, in)
func NewGroupAccumulator(config GroupConfig, clock Clock) *GroupAccumulator {
	return &GroupAccumulator{
		name:   "accumulate-groups",
		config: config,
		clock:  clock,
	}
}

// WithName sets a custom name for this processor.
func (g *GroupAccumulator) WithName(name string) *GroupAccumulator {
	g.name = name
	return g
}

// WithMetrics records evictions and collection size on m.
func (g *GroupAccumulator) WithMetrics(m *Metrics) *GroupAccumulator {
	g.metrics = m
	return g
}

// Process emits a snapshot after every fold step. Group members are always
// appended, even when they carry the removal key. The output closes when ctx
// is cancelled, or once the source is closed and no trigger is pending.
// Triggers due past the horizon of an ending Loop cycle are dropped.
func (g *GroupAccumulator) Process(ctx context.Context, in <-chan Emission) <-chan Collection {
	out := make(chan Collection)
	ctx, cancel := context.WithCancel(ctx)

	removeKey := removeKeyOrDefault(g.config.RemoveOnKey)
	triggers := newTriggers(g.clock)
	c := cycleFrom(ctx)

	go func() {
		defer close(out)
		defer cancel()
		defer triggers.stop()

		var items []Item
		position := 0
		src := in
		ending := c.over()

		evicted := func(n int) {
			g.metrics.evicted(g.name, evictByKey, n)
		}

		emit := func(items []Item) bool {
			if ctx.Err() != nil {
				return false
			}
			g.metrics.size(g.name, len(items))
			select {
			case out <- snapshot(items):
				return true
			case <-ctx.Done():
				return false
			}
		}

		for src != nil || triggers.pending() > 0 {
			select {
			case <-ctx.Done():
				return

			case e, ok := <-src:
				if !ok {
					src = nil
					continue
				}
				if g.config.RemoveAfterTime > 0 {
					g.scheduleRemoval(triggers, e, position)
				}
				position++

				if e.IsGroup() {
					items = append(items, e.Normalized()...)
				} else {
					items = foldItem(items, e.Item(), removeKey, evicted)
				}

			case <-triggers.C():
				for _, it := range triggers.take() {
					items = foldItem(items, it, removeKey, evicted)
					if !emit(items) {
						return
					}
				}
				continue

			case <-ending:
				ending = nil
				triggers.cut(c.horizon)
				continue
			}

			if !emit(items) {
				return
			}
		}
	}()

	return out
}

// scheduleRemoval echoes an emission as a removal trigger carrying the
// emission's effective delay. Empty groups have nothing to remove.
func (g *GroupAccumulator) scheduleRemoval(triggers *triggers, e Emission, position int) {
	delay, ok := e.Delay()
	if !ok {
		return
	}
	members := e.Items()
	marker := members[len(members)-1]
	marker.Delay = delay
	marker.Key = KeyRemove
	marker.ID = KeyRemove + strconv.Itoa(position)
	triggers.after(g.config.RemoveAfterTime, delay+g.config.RemoveAfterTime, marker)
}

// Name returns the processor name for debugging and monitoring.
func (g *GroupAccumulator) Name() string {
	return g.name
}
