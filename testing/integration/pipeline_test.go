package integration

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/zoobzio/intervalz"
	"github.com/zoobzio/intervalz/fixture"
	helpers "github.com/zoobzio/intervalz/testing"
)

const waitFor = time.Second

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	return helpers.CollectN(t, ch, 1, waitFor)[0]
}

// A lane scheduled on the engine and folded with a time based removal.
func TestPipeline_LaneWithRemoveAfterTime(t *testing.T) {
	clock := clockz.NewFakeClock()
	engine := intervalz.NewEngine(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedule, err := engine.ScheduleLane([]intervalz.Item{
		{Key: "car", Delay: 0},
		{Key: "truck", Delay: ms(100)},
		{Key: "bike", Delay: ms(200)},
	}, 0)
	require.NoError(t, err)

	acc := intervalz.NewAccumulator(intervalz.AccumulateConfig{RemoveAfterTime: ms(300)}, clock)
	out := acc.Process(ctx, schedule.Process(ctx))

	helpers.AssertKeys(t, next(t, out), "car")

	steps := [][]string{
		{"car", "truck"},
		{"car", "truck", "bike"},
		{"truck", "bike"},
		{"bike"},
		{},
	}
	for _, want := range steps {
		clock.Advance(ms(100))
		helpers.AssertKeys(t, next(t, out), want...)
	}
}

// Ids stay in the seen list after the items themselves leave the road.
func TestPipeline_SeenIDsSurviveRemoval(t *testing.T) {
	clock := clockz.NewFakeClock()
	engine := intervalz.NewEngine(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	items, err := engine.TagItems([]intervalz.Item{
		{Key: "car", Delay: 0},
		{Key: "car", Delay: ms(100)},
	})
	require.NoError(t, err)
	helpers.AssertUniqueIDs(t, items)

	schedule, err := intervalz.NewSchedule(items, clock)
	require.NoError(t, err)

	road := intervalz.NewAccumulator(intervalz.AccumulateConfig{RemoveAfterTime: ms(50)}, clock)
	seen := intervalz.CollectSeenIDs(ctx, road.Process(ctx, schedule.Process(ctx))).Subscribe(ctx)

	assert.Equal(t, []string{"1_0"}, next(t, seen))

	clock.Advance(ms(50))
	assert.Equal(t, []string{"1_0"}, next(t, seen), "removal snapshot keeps the id")

	clock.Advance(ms(50))
	assert.Equal(t, []string{"1_0", "1_1"}, next(t, seen))

	clock.Advance(ms(50))
	assert.Equal(t, []string{"1_0", "1_1"}, next(t, seen))
}

// Ungrouping lets a trigger split a group; the grouped fold keeps it whole.
func TestPipeline_GroupedAndUngroupedFolds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emissions := func() <-chan intervalz.Emission {
		ch := make(chan intervalz.Emission, 2)
		ch <- intervalz.Group(
			intervalz.Item{Key: "car", Delay: ms(10)},
			intervalz.Item{Key: "trailer", Delay: ms(40)},
		)
		ch <- intervalz.Single(intervalz.Item{Key: intervalz.KeyRemove, Delay: ms(20)})
		close(ch)
		return ch
	}

	flat := intervalz.NewAccumulator(intervalz.AccumulateConfig{}, intervalz.RealClock).
		Process(ctx, intervalz.NewUngroup().Process(ctx, emissions()))
	flatSnaps := helpers.CollectWithTimeout(t, flat, waitFor)
	require.Len(t, flatSnaps, 3)
	helpers.AssertKeys(t, flatSnaps[2], "trailer")

	grouped := intervalz.NewGroupAccumulator(intervalz.GroupConfig{}, intervalz.RealClock).
		Process(ctx, emissions())
	groupSnaps := helpers.CollectWithTimeout(t, grouped, waitFor)
	require.Len(t, groupSnaps, 2)
	helpers.AssertKeys(t, groupSnaps[1], "car", "trailer")
	assert.Equal(t, []time.Duration{ms(40), ms(40)}, helpers.Delays(groupSnaps[1]))
}

// Two lanes merged into one accumulator keep their stream index.
func TestPipeline_MergedLanes(t *testing.T) {
	clock := clockz.NewFakeClock()
	engine := intervalz.NewEngine(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	left, err := engine.ScheduleLane([]intervalz.Item{{Key: "car", Delay: ms(10)}}, 0)
	require.NoError(t, err)
	right, err := engine.ScheduleLane([]intervalz.Item{{Key: "bike", Delay: ms(20)}}, 1)
	require.NoError(t, err)

	road := intervalz.Merge(ctx, left.Process(ctx), right.Process(ctx))
	out := intervalz.NewAccumulator(intervalz.AccumulateConfig{}, clock).Process(ctx, road)

	clock.Advance(ms(10))
	next(t, out)
	clock.Advance(ms(10))
	snap := next(t, out)

	require.Equal(t, 2, snap.Len())
	assert.Equal(t, 0, *snap.Items[0].StreamIndex)
	assert.Equal(t, 1, *snap.Items[1].StreamIndex)
	assert.Equal(t, []string{"1_0", "2_0"}, snap.IDs())
}

const loopScenario = `name: loop
repeat: true
extraDelay: 50
lanes:
  - items:
      - {delay: 0, key: car}
      - {delay: 100, key: truck}
`

// A fixture driven loop restarts with fresh ids and releases the old cycle.
func TestLoop_FixtureScenario(t *testing.T) {
	scenario, err := fixture.Parse([]byte(loopScenario))
	require.NoError(t, err)

	clock := clockz.NewFakeClock()
	engine := intervalz.NewEngine(clock)

	var (
		mu    sync.Mutex
		ids   []string
		cycle []*intervalz.Subscription
	)
	start := func(ctx context.Context, subs *intervalz.Subscriptions) error {
		for i, lane := range scenario.Lanes {
			schedule, err := engine.ScheduleLane(lane.Items(), i)
			if err != nil {
				return err
			}
			acc := intervalz.NewAccumulator(scenario.AccumulateConfig(), clock)
			sub := intervalz.Subscribe(ctx, func(ctx context.Context) <-chan intervalz.Collection {
				return acc.Process(ctx, schedule.Process(ctx))
			}, func(c intervalz.Collection) {
				mu.Lock()
				defer mu.Unlock()
				for _, id := range c.IDs() {
					if !slices.Contains(ids, id) {
						ids = append(ids, id)
					}
				}
			})
			subs.Add(sub)
			mu.Lock()
			cycle = append(cycle, sub)
			mu.Unlock()
		}
		return nil
	}
	hasID := func(id string) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			return slices.Contains(ids, id)
		}
	}

	var repeat atomic.Bool
	repeat.Store(scenario.Repeat)
	loop := intervalz.NewLoop(engine, scenario.LoopConfig(&repeat), start)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loop.Start(ctx))
	require.Eventually(t, hasID("1_0"), waitFor, time.Millisecond)

	clock.Advance(ms(100))
	require.Eventually(t, hasID("1_1"), waitFor, time.Millisecond)

	clock.Advance(ms(50))
	require.Eventually(t, func() bool { return loop.Cycles() == 2 }, waitFor, time.Millisecond)
	require.Eventually(t, hasID("2_0"), waitFor, time.Millisecond)

	mu.Lock()
	first := cycle[0]
	mu.Unlock()
	assert.True(t, first.Closed(), "first cycle released")

	repeat.Store(false)
	clock.Advance(ms(150))

	waitCtx, done := context.WithTimeout(ctx, waitFor)
	defer done()
	state, err := loop.Wait(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, intervalz.LoopFinished, state)
	assert.Equal(t, uint64(2), loop.Cycles())

	loop.Stop()
}
