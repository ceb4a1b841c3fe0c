// Package testing provides test utilities for intervalz pipelines.
package testing

import (
	"testing"
	"time"

	"github.com/zoobzio/intervalz"
)

// CollectWithTimeout collects values from a channel until it closes or the
// timeout expires.
func CollectWithTimeout[T any](t *testing.T, ch <-chan T, timeout time.Duration) []T {
	t.Helper()

	var values []T
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return values
			}
			values = append(values, v)
		case <-timer.C:
			return values
		}
	}
}

// CollectN receives exactly n values, failing the test if they do not arrive
// within timeout.
func CollectN[T any](t *testing.T, ch <-chan T, n int, timeout time.Duration) []T {
	t.Helper()

	values := make([]T, 0, n)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(values) < n {
		select {
		case v, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d values", len(values), n)
			}
			values = append(values, v)
		case <-timer.C:
			t.Fatalf("timed out after %d of %d values", len(values), n)
		}
	}
	return values
}

// SendItems returns a closed channel holding items.
func SendItems(items ...intervalz.Item) <-chan intervalz.Item {
	ch := make(chan intervalz.Item, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}

// Keys returns the keys of a collection in order.
func Keys(c intervalz.Collection) []string {
	keys := make([]string, 0, c.Len())
	for _, it := range c.Items {
		keys = append(keys, it.Key)
	}
	return keys
}

// Delays returns the delays of a collection in order.
func Delays(c intervalz.Collection) []time.Duration {
	delays := make([]time.Duration, 0, c.Len())
	for _, it := range c.Items {
		delays = append(delays, it.Delay)
	}
	return delays
}

// AssertKeys verifies the keys of a collection, in order.
func AssertKeys(t *testing.T, c intervalz.Collection, expected ...string) {
	t.Helper()

	got := Keys(c)
	if len(got) != len(expected) {
		t.Errorf("expected keys %v, got %v", expected, got)
		return
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("expected keys %v, got %v", expected, got)
			return
		}
	}
}

// AssertUniqueIDs verifies every item carries a non-empty id seen only once.
func AssertUniqueIDs(t *testing.T, items []intervalz.Item) {
	t.Helper()

	seen := make(map[string]int, len(items))
	for i, it := range items {
		if it.ID == "" {
			t.Errorf("item %d: missing id", i)
			continue
		}
		if prev, ok := seen[it.ID]; ok {
			t.Errorf("item %d: id %q already used by item %d", i, it.ID, prev)
		}
		seen[it.ID] = i
	}
}
