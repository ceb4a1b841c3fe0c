// Package intervalz drives timed, composable animation sequences over Go
// channels. A caller supplies items, each carrying a delay from stream start
// and a semantic key; the engine emits every item at its offset and folds the
// emitted items into a growing and shrinking Collection according to removal
// rules.
//
// The core abstraction is the Processor interface: processors transform an
// input channel into an output channel and are bound to a context.Context
// whose cancellation tears down every timer they own.
//
// Basic usage:
//
//	engine := intervalz.NewEngine(intervalz.RealClock)
//	schedule, err := engine.Schedule([]intervalz.Item{
//		{Delay: 0, Key: "car"},
//		{Delay: 400 * time.Millisecond, Key: "truck"},
//	})
//	if err != nil {
//		return err
//	}
//
//	acc := intervalz.NewAccumulator(intervalz.AccumulateConfig{
//		RemoveAfterTime: 1500 * time.Millisecond,
//	}, intervalz.RealClock)
//
//	for snapshot := range acc.Process(ctx, schedule.Process(ctx)) {
//		render(snapshot.Items)
//	}
//
// The package provides:
//   - Item tagging and timed emission (Engine, Schedule)
//   - Accumulation with removal rules (Accumulator, GroupAccumulator)
//   - Passed-id bookkeeping shared across subscribers (SeenIDs, Share)
//   - Cycle orchestration (Subscription, Subscriptions, ScheduleResetCycle, Loop)
//   - Small combinators (Merge, Take, Ungroup, Tap, Mapper, Monitor)
//   - Prometheus instrumentation (Metrics)
package intervalz

import (
	"context"
	"time"
)

// Processor is the core interface for stream processing components.
// It transforms an input channel of type In to an output channel of type Out.
// Processors should:
//   - Close the output channel when processing is complete
//   - Respect context cancellation
//   - Stop every timer they registered when the context is cancelled
type Processor[In, Out any] interface {
	// Process transforms the input channel to an output channel.
	Process(ctx context.Context, in <-chan In) <-chan Out

	// Name returns a descriptive name for the processor, useful for debugging.
	Name() string
}

// AccumulateConfig configures the removal rules of an Accumulator.
// Zero values disable the corresponding rule.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type AccumulateConfig struct {
	// RemoveAfterTime re-emits every source item this long after it arrived,
	// retagged as a removal trigger.
	RemoveAfterTime time.Duration

	// RemoveOnKey is the key that marks an item as a removal trigger.
	// Defaults to KeyRemove.
	RemoveOnKey string

	// RemoveAfterStream is merged into the fold verbatim.
	RemoveAfterStream <-chan Item

	// CloseAfterTime emits a single close item this long after Process is called.
	CloseAfterTime time.Duration

	// RemoveByIDs excludes items whose id is in the latest received set.
	RemoveByIDs <-chan []string
}

// GroupConfig configures a GroupAccumulator. Only time and key based removal
// are available for grouped streams.
type GroupConfig struct {
	// RemoveAfterTime re-emits every source emission this long after it
	// arrived, retagged as a removal trigger.
	RemoveAfterTime time.Duration

	// RemoveOnKey is the key that marks an item as a removal trigger.
	// Defaults to KeyRemove.
	RemoveOnKey string
}

func removeKeyOrDefault(key string) string {
	if key == "" {
		return KeyRemove
	}
	return key
}
