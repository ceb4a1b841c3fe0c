package intervalz

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func counterValue(c prometheus.Collector) float64 {
	return testutil.ToFloat64(c)
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()

	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metrics.emitted("car")
	metrics.cycle(CycleOutcomeReset)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{"intervalz_items_emitted_total", "intervalz_cycles_total"} {
		if !names[name] {
			t.Errorf("expected %s to be registered", name)
		}
	}
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Error("expected an error registering the metrics twice")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var metrics *Metrics

	metrics.emitted("car")
	metrics.evicted("accumulate", evictByKey, 3)
	metrics.size("accumulate", 1)
	metrics.cycle(CycleOutcomeStopped)
}

func TestMetrics_Evicted(t *testing.T) {
	metrics, err := NewMetrics(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metrics.evicted("accumulate", evictByKey, 2)
	metrics.evicted("accumulate", evictByKey, 0)

	if got := counterValue(metrics.ItemsEvicted.WithLabelValues("accumulate", evictByKey)); got != 2 {
		t.Errorf("expected 2 evictions, got %v", got)
	}
}
