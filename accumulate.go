package intervalz

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Eviction reasons recorded in metrics.
const (
	evictByKey = "key"
	evictByID  = "id"
)

// Accumulator folds a timed item stream into a Collection, applying the
// removal rules of its AccumulateConfig.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Accumulator struct {
	name    string
	config  AccumulateConfig
	clock   Clock
	metrics *Metrics
}

// NewAccumulator creates a processor that turns items into Collection
// snapshots.
//
// Every incoming item is appended to the collection, unless its key equals
// RemoveOnKey: then it acts as a removal trigger and evicts every retained
// item whose delay is not strictly greater than its own. One trigger can
// therefore clear a whole cohort of earlier items.
//
// Triggers come from the source itself, from RemoveAfterStream, from the
// RemoveAfterTime echo of every source item, and, when CloseAfterTime is
// set, a single close item. With RemoveByIDs set, snapshots exclude the ids
// of the latest id-set and are re-emitted whenever a new set arrives.
//
// Example:
//
//	acc := intervalz.NewAccumulator(intervalz.AccumulateConfig{
//		RemoveAfterTime: 2 * time.Second,
//	}, intervalz.RealClock)
//
//	for snapshot := range acc.Process(ctx, schedule.Process(ctx)) {
//		render(snapshot)
//	}
func NewAccumulator(config AccumulateConfig, clock Clock) *Accumulator {
	return &Accumulator{
		name:   "accumulate",
		config: config,
		clock:  clock,
	}
}

// WithName sets a custom name for this processor.
func (a *Accumulator) WithName(name string) *Accumulator {
	a.name = name
	return a
}

// WithMetrics records evictions and collection size on m.
func (a *Accumulator) WithMetrics(m *Metrics) *Accumulator {
	a.metrics = m
	return a
}

// Process emits a snapshot after every fold step. The output closes when ctx
// is cancelled, or once the source and every auxiliary input are closed and
// no trigger timer is pending. When a Loop cycle ends, triggers due past its
// horizon are dropped and RemoveByIDs is no longer read.
func (a *Accumulator) Process(ctx context.Context, in <-chan Item) <-chan Collection {
	out := make(chan Collection)
	ctx, cancel := context.WithCancel(ctx)

	removeKey := removeKeyOrDefault(a.config.RemoveOnKey)
	triggers := newTriggers(a.clock)
	c := cycleFrom(ctx)

	if a.config.CloseAfterTime > 0 {
		triggers.after(a.config.CloseAfterTime, a.config.CloseAfterTime, Item{
			Key:   KeyClose,
			ID:    KeyClose,
			Delay: a.config.CloseAfterTime,
		})
	}

	go func() {
		defer close(out)
		defer cancel()
		defer triggers.stop()

		var (
			items    []Item
			excluded map[string]struct{}
			hasIDs   bool
			folded   bool
			position int
		)

		src := in
		external := a.config.RemoveAfterStream
		idSets := a.config.RemoveByIDs
		filtering := idSets != nil
		ending := c.over()

		emit := func() bool {
			if ctx.Err() != nil {
				return false
			}
			if filtering && (!hasIDs || !folded) {
				return true
			}
			snap := snapshot(items)
			if filtering {
				kept := snap.Items[:0]
				for _, it := range snap.Items {
					if _, gone := excluded[it.ID]; it.ID != "" && gone {
						continue
					}
					kept = append(kept, it)
				}
				a.metrics.evicted(a.name, evictByID, len(snap.Items)-len(kept))
				snap.Items = kept
			}
			a.metrics.size(a.name, len(snap.Items))

			select {
			case out <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		fold := func(it Item) {
			items = foldItem(items, it, removeKey, func(n int) {
				a.metrics.evicted(a.name, evictByKey, n)
			})
			folded = true
		}

		for src != nil || external != nil || idSets != nil || triggers.pending() > 0 {
			select {
			case <-ctx.Done():
				return

			case it, ok := <-src:
				if !ok {
					src = nil
					continue
				}
				if a.config.RemoveAfterTime > 0 {
					marker := it
					marker.Key = KeyRemove
					marker.ID = KeyRemove + strconv.Itoa(position)
					triggers.after(a.config.RemoveAfterTime, it.Delay+a.config.RemoveAfterTime, marker)
				}
				position++
				fold(it)

			case it, ok := <-external:
				if !ok {
					external = nil
					continue
				}
				fold(it)

			case <-triggers.C():
				for _, it := range triggers.take() {
					fold(it)
					if !emit() {
						return
					}
				}
				continue

			case <-ending:
				// Past the end of the cycle only the items already due
				// matter; id-sets no longer change the outcome.
				ending = nil
				idSets = nil
				triggers.cut(c.horizon)
				continue

			case set, ok := <-idSets:
				if !ok {
					idSets = nil
					continue
				}
				excluded = make(map[string]struct{}, len(set))
				for _, id := range set {
					excluded[id] = struct{}{}
				}
				hasIDs = true
			}

			if !emit() {
				return
			}
		}
	}()

	return out
}

// Name returns the processor name for debugging and monitoring.
func (a *Accumulator) Name() string {
	return a.name
}

// foldItem applies one fold step in place: a removal trigger keeps only the
// items scheduled strictly later than it, anything else is appended.
func foldItem(items []Item, it Item, removeKey string, evicted func(int)) []Item {
	if it.Key != removeKey {
		return append(items, it)
	}
	kept := items[:0]
	for _, member := range items {
		if member.Delay > it.Delay {
			kept = append(kept, member)
		}
	}
	evicted(len(items) - len(kept))
	clear(items[len(kept):])
	return kept
}

// trigger is a synthetic item armed on the clock. at is the offset from
// stream start at which it fires.
type trigger struct {
	item  Item
	at    time.Duration
	timer Timer
}

// triggers delivers synthetic items from clock timers into the fold loop.
// Timer callbacks only queue the item and never block the clock; every other
// method is called from the fold goroutine.
type triggers struct {
	clock Clock
	armed map[*trigger]struct{}
	wake  chan struct{}

	// Set once the cycle ends: nothing past horizon is armed any more.
	bounded bool
	horizon time.Duration

	mu    sync.Mutex
	fired []*trigger
}

func newTriggers(clock Clock) *triggers {
	return &triggers{
		clock: clock,
		armed: make(map[*trigger]struct{}),
		wake:  make(chan struct{}, 1),
	}
}

// after arms it to fire in d. at is the stream offset d lands on.
func (t *triggers) after(d, at time.Duration, it Item) {
	if t.bounded && at > t.horizon {
		return
	}
	tr := &trigger{item: it, at: at}
	t.armed[tr] = struct{}{}
	tr.timer = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		t.fired = append(t.fired, tr)
		t.mu.Unlock()

		select {
		case t.wake <- struct{}{}:
		default:
		}
	})
}

// C signals that fired triggers are waiting to be taken.
func (t *triggers) C() <-chan struct{} {
	return t.wake
}

// take returns the items of the triggers fired so far, in firing order.
func (t *triggers) take() []Item {
	t.mu.Lock()
	fired := t.fired
	t.fired = nil
	t.mu.Unlock()

	items := make([]Item, 0, len(fired))
	for _, tr := range fired {
		if _, ok := t.armed[tr]; !ok {
			continue
		}
		delete(t.armed, tr)
		items = append(items, tr.item)
	}
	return items
}

// cut disarms every trigger that would fire past horizon.
func (t *triggers) cut(horizon time.Duration) {
	t.bounded = true
	t.horizon = horizon
	for tr := range t.armed {
		if tr.at > horizon {
			tr.timer.Stop()
			delete(t.armed, tr)
		}
	}
}

func (t *triggers) pending() int {
	return len(t.armed)
}

func (t *triggers) stop() {
	for tr := range t.armed {
		tr.timer.Stop()
	}
}
