package intervalz

import (
	"context"
	"testing"
	"time"
)

const waitTimeout = time.Second

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed while waiting for a value")
		}
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a value")
	}
	var zero T
	return zero
}

func expectNone[T any](t *testing.T, ch <-chan T, wait time.Duration) {
	t.Helper()
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("unexpected value: %+v", v)
		}
		t.Fatal("channel closed unexpectedly")
	case <-time.After(wait):
	}
}

func expectClosed[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			t.Fatalf("expected channel to close, got %+v", v)
		case <-deadline:
			t.Fatal("timed out waiting for channel to close")
		}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met: %s", msg)
		}
		time.Sleep(time.Millisecond)
	}
}

func delays(c Collection) []time.Duration {
	out := make([]time.Duration, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.Delay)
	}
	return out
}

func keys(c Collection) []string {
	out := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.Key)
	}
	return out
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// drainUntilClosed discards values until ch closes.
func drainUntilClosed[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for channel to close")
		}
	}
}
