package intervalz

import (
	"log/slog"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultPalette holds the pastel colors assigned to items by position.
var DefaultPalette = []string{
	"#FFB3BA",
	"#FFDFBA",
	"#FFFFBA",
	"#BAFFC9",
	"#BAE1FF",
	"#E0BBE4",
}

// Engine owns the generation counter that keeps item ids unique across
// every schedule it creates. Create one per application and share it; the
// counter is never reset.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Engine struct {
	id         string
	generation atomic.Uint64
	clock      Clock
	palette    []string
	logger     *slog.Logger
	metrics    *Metrics
}

// NewEngine creates an Engine that schedules on the given clock.
func NewEngine(clock Clock) *Engine {
	return &Engine{
		id:      uuid.NewString(),
		clock:   clock,
		palette: DefaultPalette,
		logger:  slog.Default(),
	}
}

// WithPalette overrides the item colors. An empty palette keeps the default.
func (e *Engine) WithPalette(palette []string) *Engine {
	if len(palette) > 0 {
		e.palette = slices.Clone(palette)
	}
	return e
}

// WithLogger sets the logger used for debug output.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithMetrics records emissions and cycles on m.
func (e *Engine) WithMetrics(m *Metrics) *Engine {
	e.metrics = m
	return e
}

// ID identifies the engine instance in logs.
func (e *Engine) ID() string {
	return e.id
}

// Clock returns the clock the engine schedules on.
func (e *Engine) Clock() Clock {
	return e.clock
}

// Generation returns the last generation handed out, 0 before the first.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// TagItems returns copies of items with an id and a color assigned.
// Every call consumes one generation, even when items is empty or invalid.
func (e *Engine) TagItems(items []Item) ([]Item, error) {
	return e.tag(items, nil)
}

// TagLane is TagItems with every item also tagged with streamIndex.
func (e *Engine) TagLane(items []Item, streamIndex int) ([]Item, error) {
	return e.tag(items, &streamIndex)
}

func (e *Engine) tag(items []Item, streamIndex *int) ([]Item, error) {
	gen := e.generation.Add(1)
	prefix := strconv.FormatUint(gen, 10) + "_"

	e.logger.Debug("tagging items",
		"engine", e.id,
		"generation", gen,
		"count", len(items))

	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	tagged := make([]Item, len(items))
	for i, it := range items {
		it.ID = prefix + strconv.Itoa(i)
		it.Color = e.palette[i%len(e.palette)]
		if streamIndex != nil {
			idx := *streamIndex
			it.StreamIndex = &idx
		}
		tagged[i] = it
	}
	return tagged, nil
}

// Schedule tags items and returns the lazy timed sequence emitting them.
func (e *Engine) Schedule(items []Item) (*Schedule, error) {
	tagged, err := e.TagItems(items)
	if err != nil {
		return nil, err
	}
	return newSchedule(tagged, e.clock, e.metrics), nil
}

// ScheduleLane is Schedule with every item tagged with streamIndex.
func (e *Engine) ScheduleLane(items []Item, streamIndex int) (*Schedule, error) {
	tagged, err := e.TagLane(items, streamIndex)
	if err != nil {
		return nil, err
	}
	return newSchedule(tagged, e.clock, e.metrics), nil
}
