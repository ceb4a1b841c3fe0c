package intervalz

import (
	"context"
)

// Mapper transforms every value of a stream with a pure function.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Mapper[In, Out any] struct {
	fn   func(In) Out
	name string
}

// NewMapper creates a processor that applies fn to each value.
//
// Example:
//
//	// Render snapshots as frames for the host
//	frames := intervalz.NewMapper("frame", func(c intervalz.Collection) Frame {
//		return NewFrame(c.Items)
//	}).Process(ctx, snapshots)
func NewMapper[In, Out any](name string, fn func(In) Out) *Mapper[In, Out] {
	return &Mapper[In, Out]{
		fn:   fn,
		name: name,
	}
}

func (m *Mapper[In, Out]) Process(ctx context.Context, in <-chan In) <-chan Out {
	out := make(chan Out)

	go func() {
		defer close(out)

		for v := range in {
			select {
			case out <- m.fn(v):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (m *Mapper[In, Out]) Name() string {
	return m.name
}
