package intervalz

import (
	"context"
	"log/slog"
)

// Tap executes a side effect function for each value while passing values
// through unchanged. It's used for logging, debugging and metrics collection
// that must not modify the data flow.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Tap[T any] struct {
	name   string
	fn     func(T)
	logger *slog.Logger
}

// NewTap creates a processor that calls fn on every value and forwards the
// value unchanged. A panic in fn is recovered and logged; the value is still
// forwarded.
//
// Example:
//
//	logged := intervalz.NewTap(func(c intervalz.Collection) {
//		logger.Debug("snapshot", "size", c.Len())
//	}).WithName("lane-0").Process(ctx, snapshots)
func NewTap[T any](fn func(T)) *Tap[T] {
	return &Tap[T]{
		name:   "tap",
		fn:     fn,
		logger: slog.Default(),
	}
}

// WithName sets a custom name for this processor.
// If not set, defaults to "tap".
func (t *Tap[T]) WithName(name string) *Tap[T] {
	t.name = name
	return t
}

// WithLogger sets the logger that reports recovered panics.
func (t *Tap[T]) WithLogger(logger *slog.Logger) *Tap[T] {
	if logger != nil {
		t.logger = logger
	}
	return t
}

// Process calls the side effect for every value and forwards it.
func (t *Tap[T]) Process(ctx context.Context, in <-chan T) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)

		for v := range in {
			t.observe(v)

			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (t *Tap[T]) observe(v T) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("tap side effect panicked", "tap", t.name, "panic", r)
		}
	}()
	t.fn(v)
}

// Name returns the processor name for debugging and monitoring.
func (t *Tap[T]) Name() string {
	return t.name
}
