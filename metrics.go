package intervalz

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcomes reported by ScheduleResetCycle.
const (
	CycleOutcomeReset   = "reset"
	CycleOutcomeStopped = "stopped"
)

// Metrics contains the engine metrics. A nil *Metrics records nothing.
type Metrics struct {
	ItemsEmitted   *prometheus.CounterVec
	ItemsEvicted   *prometheus.CounterVec
	CollectionSize *prometheus.GaugeVec
	Cycles         *prometheus.CounterVec
}

// NewMetrics creates the engine metrics and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ItemsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intervalz",
				Subsystem: "items",
				Name:      "emitted_total",
				Help:      "Total number of items emitted by schedules",
			},
			[]string{"key"},
		),

		ItemsEvicted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intervalz",
				Subsystem: "items",
				Name:      "evicted_total",
				Help:      "Total number of items evicted from collections",
			},
			[]string{"processor", "reason"},
		),

		CollectionSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "intervalz",
				Subsystem: "collection",
				Name:      "size",
				Help:      "Number of items retained by the last snapshot",
			},
			[]string{"processor"},
		),

		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intervalz",
				Subsystem: "cycles",
				Name:      "total",
				Help:      "Completed cycles by outcome (reset, stopped)",
			},
			[]string{"outcome"},
		),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.ItemsEmitted, m.ItemsEvicted, m.CollectionSize, m.Cycles} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) emitted(key string) {
	if m == nil {
		return
	}
	m.ItemsEmitted.WithLabelValues(key).Inc()
}

func (m *Metrics) evicted(processor, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsEvicted.WithLabelValues(processor, reason).Add(float64(n))
}

func (m *Metrics) size(processor string, n int) {
	if m == nil {
		return
	}
	m.CollectionSize.WithLabelValues(processor).Set(float64(n))
}

func (m *Metrics) cycle(outcome string) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(outcome).Inc()
}
