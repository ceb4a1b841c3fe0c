package intervalz

import (
	"context"
)

// Ungroup flattens a stream of emissions into a stream of items.
type Ungroup struct {
	name string
}

// NewUngroup creates a processor that emits the members of every group one
// by one, in group order, and passes single items through. Members keep their
// own delays.
func NewUngroup() *Ungroup {
	return &Ungroup{
		name: "ungroup",
	}
}

// Process flattens in until it closes or ctx is cancelled.
func (*Ungroup) Process(ctx context.Context, in <-chan Emission) <-chan Item {
	out := make(chan Item)

	go func() {
		defer close(out)

		for e := range in {
			for _, it := range e.Items() {
				select {
				case out <- it:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// Name returns the processor name for debugging and monitoring.
func (u *Ungroup) Name() string {
	return u.name
}
