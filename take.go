package intervalz

import (
	"context"
)

// Take limits the stream to the first n items.
type Take[T any] struct {
	name  string
	count int
}

// NewTake creates a processor that takes only the first n items from a stream.
// After emitting n items it closes the output channel and keeps draining the
// input until it closes or ctx ends, so upstream stages never block on it.
//
// When to use:
//   - Turn a never-completing schedule into a one-shot sequence
//   - Limit processing to a sample of data
//
// Example:
//
//	// Fire once, at the end of the cycle
//	take := intervalz.NewTake[intervalz.Item](1)
//	end := take.Process(ctx, schedule.Process(ctx))
func NewTake[T any](count int) *Take[T] {
	return &Take[T]{
		count: count,
		name:  "take",
	}
}

func (t *Take[T]) Process(ctx context.Context, in <-chan T) <-chan T {
	out := make(chan T)

	go func() {
		t.forward(ctx, in, out)
		close(out)
		drain(ctx, in)
	}()

	return out
}

func (t *Take[T]) forward(ctx context.Context, in <-chan T, out chan<- T) {
	if t.count <= 0 {
		return
	}

	taken := 0
	for item := range in {
		select {
		case out <- item:
			taken++
		case <-ctx.Done():
			return
		}
		if taken >= t.count {
			return
		}
	}
}

// drain discards the rest of in until it closes or ctx ends.
func drain[T any](ctx context.Context, in <-chan T) {
	for {
		select {
		case _, ok := <-in:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (t *Take[T]) Name() string {
	return t.name
}
