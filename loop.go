package intervalz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
)

// Loop states.
const (
	LoopIdle     = "idle"
	LoopRunning  = "running"
	LoopFinished = "finished"
	LoopStopped  = "stopped"
)

const (
	loopEventStart  = "start"
	loopEventFinish = "finish"
	loopEventRewind = "rewind"
	loopEventStop   = "stop"
)

// ErrLoopStopped is returned when starting a loop that has been stopped.
var ErrLoopStopped = errors.New("loop stopped")

// StartFunc subscribes the pipelines of one cycle. Every subscription must be
// added to subs so the next cycle can release it.
type StartFunc func(ctx context.Context, subs *Subscriptions) error

// LoopConfig describes the cycle a Loop repeats.
type LoopConfig struct {
	// End tells when a cycle is over.
	End CycleEnd

	// ExtraDelay is added to the end of item based cycles.
	ExtraDelay time.Duration

	// Repeat is read at the end of each cycle. A nil Repeat never loops.
	Repeat Flag
}

// Loop runs a cycle, and runs it again for as long as the repeat flag is set
// when the cycle ends. Each cycle starts by releasing the subscriptions of
// the previous one.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Loop struct {
	engine *Engine
	config LoopConfig
	start  StartFunc

	mu      sync.Mutex
	ctx     context.Context
	state   *fsm.FSM
	changed chan struct{}
	subs    *Subscriptions
	cycles  uint64
}

// NewLoop creates a loop in the idle state.
func NewLoop(engine *Engine, config LoopConfig, start StartFunc) *Loop {
	l := &Loop{
		engine:  engine,
		config:  config,
		start:   start,
		changed: make(chan struct{}),
	}

	l.state = fsm.NewFSM(
		LoopIdle,
		fsm.Events{
			{Name: loopEventStart, Src: []string{LoopIdle, LoopFinished}, Dst: LoopRunning},
			{Name: loopEventFinish, Src: []string{LoopRunning}, Dst: LoopFinished},
			{Name: loopEventRewind, Src: []string{LoopRunning, LoopFinished}, Dst: LoopIdle},
			{Name: loopEventStop, Src: []string{LoopIdle, LoopRunning, LoopFinished}, Dst: LoopStopped},
		},
		fsm.Callbacks{
			// Transitions only happen with l.mu held.
			"enter_state": func(_ context.Context, e *fsm.Event) {
				close(l.changed)
				l.changed = make(chan struct{})
				engine.logger.Debug("loop state changed",
					"engine", engine.id,
					"event", e.Event,
					"from", e.Src,
					"to", e.Dst)
			},
		},
	)

	return l
}

// Start runs the first cycle.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.transition(ctx, loopEventStart); err != nil {
		return err
	}
	return l.run(ctx)
}

// Restart abandons the current cycle, if any, and starts a new one.
func (l *Loop) Restart(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Can(loopEventRewind) {
		if err := l.transition(ctx, loopEventRewind); err != nil {
			return err
		}
	}
	if err := l.transition(ctx, loopEventStart); err != nil {
		return err
	}
	return l.run(ctx)
}

// Stop releases every subscription of the current cycle. A stopped loop
// cannot be started again.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if l.state.Can(loopEventStop) {
		_ = l.transition(ctx, loopEventStop)
	}
	l.subs.Unsubscribe()
}

// State returns the current state of the loop.
func (l *Loop) State() string {
	return l.state.Current()
}

// Wait blocks while the loop is running and returns the state it settled
// in. It returns early with ctx's error when ctx ends first.
func (l *Loop) Wait(ctx context.Context) (string, error) {
	for {
		l.mu.Lock()
		state := l.state.Current()
		changed := l.changed
		l.mu.Unlock()

		if state != LoopRunning {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// Cycles returns the number of cycles started so far.
func (l *Loop) Cycles() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cycles
}

// run starts a cycle. Caller must hold l.mu.
//
// The cycle's schedules stop at the end offset and the loop waits for the
// pipelines reading them to deliver their last values, so emissions due at
// the very end are seen before the cycle is released.
func (l *Loop) run(ctx context.Context) error {
	l.ctx = ctx
	l.subs = ResetPriorSubscriptions(l.subs)
	l.cycles++
	cycle := l.cycles
	c := newCycle(l.config.End.LastDelay(l.config.ExtraDelay))

	if err := l.start(withCycle(ctx, c), l.subs); err != nil {
		l.subs.Unsubscribe()
		_ = l.transition(ctx, loopEventFinish)
		return fmt.Errorf("start cycle %d: %w", cycle, err)
	}

	var again atomic.Bool
	end := l.engine.ScheduleResetCycle(ctx, l.config.End, l.config.Repeat, l.config.ExtraDelay, func() {
		again.Store(true)
	})
	l.subs.Add(end)

	go func() {
		<-end.Done()
		c.end()
		if err := c.drain(ctx); err != nil {
			l.finished(cycle)
			return
		}
		if again.Load() {
			l.reset(cycle)
			return
		}
		l.finished(cycle)
	}()

	return nil
}

// reset starts the next cycle when the cycle that asked for it is still
// current.
func (l *Loop) reset(cycle uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cycle != l.cycles || l.state.Current() != LoopRunning {
		return
	}
	if l.ctx.Err() != nil {
		_ = l.transition(l.ctx, loopEventFinish)
		return
	}
	if err := l.transition(l.ctx, loopEventFinish); err != nil {
		return
	}
	if err := l.transition(l.ctx, loopEventStart); err != nil {
		return
	}
	if err := l.run(l.ctx); err != nil {
		l.engine.logger.Error("loop restart failed", "engine", l.engine.id, "error", err)
	}
}

// finished marks the cycle as over when it ended without a reset.
// Stale cycles are ignored.
func (l *Loop) finished(cycle uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cycle != l.cycles || l.state.Current() != LoopRunning {
		return
	}
	_ = l.transition(l.ctx, loopEventFinish)
}

func (l *Loop) transition(ctx context.Context, event string) error {
	if l.state.Current() == LoopStopped {
		return ErrLoopStopped
	}
	if err := l.state.Event(ctx, event); err != nil {
		return fmt.Errorf("loop %s: %w", event, err)
	}
	return nil
}
