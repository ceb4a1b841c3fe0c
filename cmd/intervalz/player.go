package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zoobzio/intervalz"
	"github.com/zoobzio/intervalz/fixture"
)

// Frame kinds.
const (
	frameSnapshot = "snapshot"
	frameSeen     = "seen"
)

// frame is one JSON line of output.
type frame struct {
	Run   string      `json:"run"`
	Cycle uint64      `json:"cycle"`
	Lane  int         `json:"lane"`
	Kind  string      `json:"kind"`
	Items []frameItem `json:"items,omitempty"`
	Seen  []string    `json:"seen,omitempty"`
}

// frameItem is an item as written to the output. Delays are in
// milliseconds, like the scenario file.
type frameItem struct {
	Delay       int64  `json:"delay"`
	Key         string `json:"key"`
	ID          string `json:"id,omitempty"`
	Color       string `json:"color,omitempty"`
	StreamIndex *int   `json:"streamIndex,omitempty"`
	Value       any    `json:"value,omitempty"`
}

func frameItems(items []intervalz.Item) []frameItem {
	out := make([]frameItem, 0, len(items))
	for _, it := range items {
		out = append(out, frameItem{
			Delay:       it.Delay.Milliseconds(),
			Key:         it.Key,
			ID:          it.ID,
			Color:       it.Color,
			StreamIndex: it.StreamIndex,
			Value:       it.Value,
		})
	}
	return out
}

// player runs a scenario through a Loop. Every lane gets its own schedule
// and accumulator; snapshots and the ids seen so far are written as frames.
type player struct {
	runID    string
	scenario *fixture.Scenario
	engine   *intervalz.Engine
	metrics  *intervalz.Metrics
	logger   *slog.Logger
	stats    time.Duration
	repeat   atomic.Bool

	// A released cycle may still be finishing its last write.
	mu  sync.Mutex
	enc *json.Encoder

	// cycle is written by start, which the loop serializes.
	cycle   uint64
	running sync.WaitGroup
}

func newPlayer(scenario *fixture.Scenario, w io.Writer, logger *slog.Logger, metrics *intervalz.Metrics, repeat bool) *player {
	runID := uuid.NewString()
	logger = logger.With("run", runID, "scenario", scenario.Name)

	p := &player{
		runID:    runID,
		scenario: scenario,
		engine:   intervalz.NewEngine(intervalz.RealClock).WithLogger(logger).WithMetrics(metrics),
		metrics:  metrics,
		logger:   logger,
		enc:      json.NewEncoder(w),
	}
	p.repeat.Store(repeat)
	return p
}

// withStats logs frame throughput every interval. Zero disables it.
func (p *player) withStats(interval time.Duration) *player {
	p.stats = interval
	return p
}

// play runs the scenario until its last cycle ends or ctx is cancelled.
func (p *player) play(ctx context.Context) error {
	loop := intervalz.NewLoop(p.engine, p.scenario.LoopConfig(&p.repeat), p.start)
	if err := loop.Start(ctx); err != nil {
		return err
	}

	// Wait only fails once ctx has ended, which is a normal shutdown.
	state, err := loop.Wait(ctx)
	loop.Stop()
	p.running.Wait()

	p.logger.Info("scenario ended", "state", state, "cycles", loop.Cycles(), "cancelled", err != nil)
	return nil
}

func (p *player) start(ctx context.Context, subs *intervalz.Subscriptions) error {
	p.cycle++
	cycle := p.cycle

	schedules := make([]*intervalz.Schedule, 0, len(p.scenario.Lanes))
	for i, lane := range p.scenario.Lanes {
		s, err := p.engine.ScheduleLane(lane.Items(), i)
		if err != nil {
			return fmt.Errorf("lane %d: %w", i, err)
		}
		schedules = append(schedules, s.WithName("lane-"+strconv.Itoa(i)))
	}

	sub := intervalz.Subscribe(ctx, func(ctx context.Context) <-chan frame {
		frames := make([]<-chan frame, 0, 2*len(schedules))
		for i, s := range schedules {
			frames = append(frames, p.lane(ctx, cycle, i, s)...)
		}
		merged := intervalz.Merge(ctx, frames...)
		if p.stats > 0 {
			merged = intervalz.NewMonitor[frame](p.stats, p.engine.Clock(), func(s intervalz.StreamStats) {
				p.logger.Info("frame throughput", "cycle", cycle, "count", s.Count, "rate", s.Rate)
			}).WithName("frames").Process(ctx, merged)
		}
		return intervalz.NewTap(func(f frame) {
			p.logger.Debug("frame", "cycle", f.Cycle, "lane", f.Lane, "kind", f.Kind)
		}).WithName("frames").WithLogger(p.logger).Process(ctx, merged)
	}, p.write)
	subs.Add(sub)

	p.running.Add(1)
	go func() {
		<-sub.Done()
		p.running.Done()
	}()

	p.logger.Info("cycle started", "cycle", cycle, "generation", p.engine.Generation())
	return nil
}

// lane wires one lane: its snapshots are shared between the snapshot frames
// and the seen-ids collector.
func (p *player) lane(ctx context.Context, cycle uint64, index int, s *intervalz.Schedule) []<-chan frame {
	acc := intervalz.NewAccumulator(p.scenario.AccumulateConfig(), p.engine.Clock()).
		WithName(s.Name()).
		WithMetrics(p.metrics)
	snapshots := intervalz.NewShare(ctx, acc.Process(ctx, s.Process(ctx))).
		WithName(s.Name()).
		AutoConnect(2)

	items := intervalz.NewMapper(frameSnapshot, func(c intervalz.Collection) frame {
		return frame{Run: p.runID, Cycle: cycle, Lane: index, Kind: frameSnapshot, Items: frameItems(c.Items)}
	}).Process(ctx, snapshots.Subscribe(ctx))

	seen := intervalz.NewMapper(frameSeen, func(ids []string) frame {
		return frame{Run: p.runID, Cycle: cycle, Lane: index, Kind: frameSeen, Seen: ids}
	}).Process(ctx, intervalz.CollectSeenIDs(ctx, snapshots.Subscribe(ctx)).Subscribe(ctx))

	return []<-chan frame{items, seen}
}

func (p *player) write(f frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(f); err != nil {
		p.logger.Error("write frame", "error", err)
	}
}
