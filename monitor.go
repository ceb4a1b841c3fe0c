package intervalz

import (
	"context"
	"time"
)

// StreamStats contains statistics about values flowing through a monitored
// stream.
type StreamStats struct {
	// LastUpdate is the time of this report.
	LastUpdate time.Time
	// Count is the number of values seen since the last report.
	Count int64
	// Rate is the average number of values per second since the last report.
	Rate float64
}

// Monitor observes values passing through a stream and periodically reports
// throughput. It does not modify the stream.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Monitor[T any] struct {
	name     string
	interval time.Duration
	clock    Clock
	onStats  func(StreamStats)
}

// NewMonitor creates a pass-through processor that calls onStats every
// interval, and once more when the stream ends.
//
// Example:
//
//	// Report the snapshot rate of a lane every five seconds
//	monitored := intervalz.NewMonitor[intervalz.Collection](5*time.Second, intervalz.RealClock,
//		func(s intervalz.StreamStats) {
//			logger.Info("lane throughput", "rate", s.Rate, "count", s.Count)
//		}).Process(ctx, snapshots)
func NewMonitor[T any](interval time.Duration, clock Clock, onStats func(StreamStats)) *Monitor[T] {
	return &Monitor[T]{
		name:     "monitor",
		interval: interval,
		clock:    clock,
		onStats:  onStats,
	}
}

// WithName sets a custom name for this processor.
func (m *Monitor[T]) WithName(name string) *Monitor[T] {
	m.name = name
	return m
}

func (m *Monitor[T]) Process(ctx context.Context, in <-chan T) <-chan T {
	out := make(chan T)
	ticker := m.clock.NewTicker(m.interval)
	last := m.clock.Now()

	go func() {
		defer close(out)
		defer ticker.Stop()

		var count int64
		report := func() {
			now := m.clock.Now()
			var rate float64
			if elapsed := now.Sub(last).Seconds(); elapsed > 0 {
				rate = float64(count) / elapsed
			}
			if m.onStats != nil {
				m.onStats(StreamStats{LastUpdate: now, Count: count, Rate: rate})
			}
			count = 0
			last = now
		}

		for {
			select {
			case <-ctx.Done():
				report()
				return

			case v, ok := <-in:
				if !ok {
					report()
					return
				}
				count++

				select {
				case out <- v:
				case <-ctx.Done():
					return
				}

			case <-ticker.C():
				report()
			}
		}
	}()

	return out
}

// Name returns the processor name for debugging and monitoring.
func (m *Monitor[T]) Name() string {
	return m.name
}
