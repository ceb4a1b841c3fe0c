package intervalz

import (
	"context"
	"sync"
	"sync/atomic"
)

// Subscription is the handle of a running pipeline.
type Subscription struct {
	cancel  context.CancelFunc
	done    chan struct{}
	stopped atomic.Bool
}

func newSubscription(cancel context.CancelFunc) *Subscription {
	return &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Subscribe builds a pipeline under a cancellable context and delivers each
// value it produces to next. The pipeline is torn down by Unsubscribe or when
// ctx ends. Once Unsubscribe has returned no new delivery starts; a delivery
// already running is allowed to finish. A nil next drains the pipeline.
//
// Under a Loop cycle, a pipeline reading the cycle's schedules completes when
// the cycle ends, and the Loop waits for its last delivery before moving on.
//
// Example:
//
//	sub := intervalz.Subscribe(ctx, func(ctx context.Context) <-chan intervalz.Collection {
//		return acc.Process(ctx, schedule.Process(ctx))
//	}, render)
//	subs.Add(sub)
func Subscribe[T any](ctx context.Context, build func(context.Context) <-chan T, next func(T)) *Subscription {
	return subscribe(ctx, build, next, nil)
}

// subscribe is Subscribe with a finalizer that runs exactly once when the
// pipeline ends, before Done is closed.
func subscribe[T any](ctx context.Context, build func(context.Context) <-chan T, next func(T), finally func()) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)
	values := build(context.WithValue(ctx, subscriptionKey{}, sub))

	go func() {
		defer close(sub.done)
		defer cancel()
		if finally != nil {
			defer finally()
		}

		for v := range values {
			if sub.stopped.Load() {
				continue
			}
			if next != nil {
				next(v)
			}
		}
	}()

	return sub
}

// Unsubscribe cancels the pipeline. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || !s.stopped.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
}

// Closed reports whether Unsubscribe has been called.
func (s *Subscription) Closed() bool {
	return s.stopped.Load()
}

// Done is closed once the pipeline has fully wound down, whether it was
// cancelled or ran to completion.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscriptions holds the subscriptions of one cycle so they can be released
// together.
type Subscriptions struct {
	mu       sync.Mutex
	subs     []*Subscription
	released bool
}

// NewSubscriptions returns an empty container.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{}
}

// Add registers sub. Adding to a released container unsubscribes sub
// immediately.
func (s *Subscriptions) Add(sub *Subscription) {
	if sub == nil {
		return
	}

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

// Len returns the number of held subscriptions.
func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Unsubscribe releases every held subscription. It is idempotent.
func (s *Subscriptions) Unsubscribe() {
	if s == nil {
		return
	}

	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.released = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Released reports whether the container has been released.
func (s *Subscriptions) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// ResetPriorSubscriptions releases subs, if any, and returns a fresh
// container for the next cycle. Every cycle calls it before subscribing again
// so no timer of the previous cycle outlives it.
func ResetPriorSubscriptions(subs *Subscriptions) *Subscriptions {
	subs.Unsubscribe()
	return NewSubscriptions()
}
