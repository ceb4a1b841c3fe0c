package intervalz

import (
	"context"
	"fmt"
	"testing"

	"github.com/zoobzio/clockz"
)

func TestTake(t *testing.T) {
	ctx := context.Background()
	in := make(chan int)

	take := NewTake[int](3)
	out := take.Process(ctx, in)

	go func() {
		for i := 0; i < 10; i++ {
			in <- i
		}
		close(in)
	}()

	results := []int{}
	for val := range out {
		results = append(results, val)
	}

	expected := []int{0, 1, 2}
	if len(results) != len(expected) {
		t.Fatalf("expected %d items, got %d", len(expected), len(results))
	}
	for i, v := range results {
		if v != expected[i] {
			t.Errorf("expected %d at position %d, got %d", expected[i], i, v)
		}
	}
}

func TestTakeZero(t *testing.T) {
	ctx := context.Background()
	in := make(chan int)

	take := NewTake[int](0)
	out := take.Process(ctx, in)

	go func() {
		in <- 1
		in <- 2
		close(in)
	}()

	count := 0
	for range out {
		count++
	}

	if count != 0 {
		t.Errorf("expected 0 items, got %d", count)
	}
}

func TestTake_CompletesNeverEndingSchedule(t *testing.T) {
	clock := clockz.NewFakeClock()
	ctx := testContext(t)

	schedule, err := NewSchedule([]Item{{Key: KeyReset, Delay: ms(100)}}, clock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := NewTake[Item](1).Process(ctx, schedule.Process(ctx))

	clock.Advance(ms(100))
	if it := receive(t, out); it.Key != KeyReset {
		t.Errorf("expected the reset item, got %q", it.Key)
	}
	expectClosed(t, out)
}

func TestTake_Name(t *testing.T) {
	if NewTake[int](1).Name() != "take" {
		t.Error("expected name 'take'")
	}
}

// Example demonstrates turning a timed item list into a one-shot signal.
func ExampleTake() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedule, _ := NewSchedule([]Item{
		{Key: "car", Delay: 0},
		{Key: "bike", Delay: 0},
	}, RealClock)

	for it := range NewTake[Item](1).Process(ctx, schedule.Process(ctx)) {
		fmt.Println(it.Key)
	}

	// Output:
	// car
}
