package intervalz

import (
	"context"
)

// SeenIDs derives the ever-growing, deduplicated list of ids that have
// appeared in a Collection stream.
type SeenIDs struct {
	name string
}

// NewSeenIDs creates a processor that folds Collection snapshots into the
// list of ids seen so far, in first-seen order. Items without an id are
// ignored.
//
// When to use:
//   - Track which items have already passed through an animation
//   - Feed AccumulateConfig.RemoveByIDs of a downstream lane
//
// Example:
//
//	seen := intervalz.NewSeenIDs()
//	for ids := range seen.Process(ctx, snapshots) {
//		markPassed(ids)
//	}
//
// Use CollectSeenIDs when several consumers need the same list.
func NewSeenIDs() *SeenIDs {
	return &SeenIDs{
		name: "seen-ids",
	}
}

// WithName sets a custom name for this processor.
func (s *SeenIDs) WithName(name string) *SeenIDs {
	s.name = name
	return s
}

// Process emits the updated id list after every snapshot, even when the
// snapshot added nothing new.
func (*SeenIDs) Process(ctx context.Context, in <-chan Collection) <-chan []string {
	out := make(chan []string)

	go func() {
		defer close(out)

		seen := make(map[string]struct{})
		var ids []string

		for snap := range in {
			for _, id := range snap.IDs() {
				if _, exists := seen[id]; exists {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}

			select {
			case out <- append(make([]string, 0, len(ids)), ids...):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Name returns the processor name for debugging and monitoring.
func (s *SeenIDs) Name() string {
	return s.name
}

// CollectSeenIDs runs a single SeenIDs fold over in and shares its output
// with every subscriber.
func CollectSeenIDs(ctx context.Context, in <-chan Collection) *Share[[]string] {
	return NewShare(ctx, NewSeenIDs().Process(ctx, in))
}
