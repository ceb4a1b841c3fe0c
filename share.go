package intervalz

import (
	"context"
	"slices"
	"sync"
)

// Share broadcasts a single upstream channel to any number of subscribers.
// The upstream is read by one goroutine, started by the first Subscribe, so
// stateful processors upstream run once no matter how many consumers attach.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Share[T any] struct {
	name  string
	ctx   context.Context
	in    <-chan T
	start sync.Once
	done  chan struct{}
	leave chan *shareSub[T]

	mu        sync.Mutex
	subs      []*shareSub[T]
	attached  int
	connectAt int
	closed    bool
}

type shareSub[T any] struct {
	ctx     context.Context
	ch      chan T
	dropped bool
}

// NewShare creates a broadcaster over in. Reading stops when ctx is cancelled
// or in is closed; every subscriber channel is then closed.
//
// Subscribers only see values that arrive after they subscribed. A slow
// subscriber holds back the others until it reads or its context ends.
//
// Example:
//
//	shared := intervalz.NewShare(ctx, seen.Process(ctx, snapshots))
//	left := shared.Subscribe(ctx)
//	right := shared.Subscribe(ctx)
func NewShare[T any](ctx context.Context, in <-chan T) *Share[T] {
	return &Share[T]{
		name:      "share",
		ctx:       ctx,
		in:        in,
		done:      make(chan struct{}),
		leave:     make(chan *shareSub[T]),
		connectAt: 1,
	}
}

// WithName sets a custom name for this broadcaster.
func (s *Share[T]) WithName(name string) *Share[T] {
	s.name = name
	return s
}

// AutoConnect delays reading the upstream until n subscribers have
// attached, so none of them misses the first values. The default is 1.
func (s *Share[T]) AutoConnect(n int) *Share[T] {
	s.connectAt = max(n, 1)
	return s
}

// Subscribe attaches a new consumer. The returned channel closes when ctx is
// cancelled or the upstream ends.
func (s *Share[T]) Subscribe(ctx context.Context) <-chan T {
	sub := &shareSub[T]{ctx: ctx, ch: make(chan T)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(sub.ch)
		return sub.ch
	}
	s.subs = append(s.subs, sub)
	s.attached++
	connect := s.attached >= s.connectAt
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
			s.connect()
			return
		case <-s.done:
			return
		}
		select {
		case s.leave <- sub:
		case <-s.ctx.Done():
			s.connect()
		case <-s.done:
		}
	}()

	if connect {
		s.connect()
	}
	return sub.ch
}

// connect starts the pump once. A pump started after ctx has ended closes
// every subscriber straight away.
func (s *Share[T]) connect() {
	s.start.Do(func() { go s.pump() })
}

func (s *Share[T]) pump() {
	defer func() {
		s.mu.Lock()
		s.closed = true
		subs := s.subs
		s.subs = nil
		s.mu.Unlock()

		for _, sub := range subs {
			if !sub.dropped {
				sub.dropped = true
				close(sub.ch)
			}
		}
		close(s.done)
	}()

	for {
		select {
		case <-s.ctx.Done():
			return

		case sub := <-s.leave:
			s.drop(sub)

		case v, ok := <-s.in:
			if !ok {
				return
			}
			if !s.broadcast(v) {
				return
			}
		}
	}
}

func (s *Share[T]) broadcast(v T) bool {
	s.mu.Lock()
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.dropped {
			continue
		}
		select {
		case sub.ch <- v:
		case <-sub.ctx.Done():
			s.drop(sub)
		case <-s.ctx.Done():
			return false
		}
	}
	return true
}

// drop detaches a subscriber. Only the pump goroutine calls it.
func (s *Share[T]) drop(sub *shareSub[T]) {
	if sub.dropped {
		return
	}
	sub.dropped = true

	s.mu.Lock()
	s.subs = slices.DeleteFunc(s.subs, func(other *shareSub[T]) bool {
		return other == sub
	})
	s.mu.Unlock()

	close(sub.ch)
}

// Name returns the broadcaster name for debugging and monitoring.
func (s *Share[T]) Name() string {
	return s.name
}
