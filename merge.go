package intervalz

import (
	"context"
	"sync"
)

// Merge fans several channels into one. Values keep their per-input order;
// ordering across inputs follows arrival. The output closes once every input
// is closed or ctx ends.
//
// When to use:
//   - Feed several lanes into a single Accumulator
//   - Combine external removal triggers into RemoveAfterStream
//
// Example:
//
//	left, _ := engine.ScheduleLane(leftItems, 0)
//	right, _ := engine.ScheduleLane(rightItems, 1)
//	road := intervalz.Merge(ctx, left.Process(ctx), right.Process(ctx))
//	snapshots := acc.Process(ctx, road)
func Merge[T any](ctx context.Context, ins ...<-chan T) <-chan T {
	out := make(chan T)
	var wg sync.WaitGroup

	for _, in := range ins {
		if in == nil {
			continue
		}
		wg.Add(1)
		go func(ch <-chan T) {
			defer wg.Done()
			for v := range ch {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}(in)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
