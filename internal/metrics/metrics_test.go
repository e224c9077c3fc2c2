package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveProbe("a.com", 20*time.Millisecond, true)
	m.ObserveProbe("a.com", 0, false)
	m.ObserveProbe("a.com", 0, false)
	m.BootstrapFetch("ok")
	m.Cycle("fresh")
	m.CycleCompleted(time.Unix(1700000000, 0))
	m.Endpoints("chat", 3)
	m.CallRefresh("failed")

	if got := testutil.ToFloat64(m.probeOutcomes.WithLabelValues("a.com", "failed")); got != 2 {
		t.Fatalf("failed probes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.endpoints.WithLabelValues("chat")); got != 3 {
		t.Fatalf("endpoints gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.lastCycleUnixTS); got != 1700000000 {
		t.Fatalf("last cycle = %v", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Fatalf("gather: n=%d err=%v", n, err)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveProbe("x", time.Second, true)
	m.BootstrapFetch("ok")
	m.Cycle("none")
	m.CycleCompleted(time.Now())
	m.Endpoints("x", 1)
	m.CallRefresh("ok")
}

func TestMetrics_SkippedCycleLeavesTimestamp(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Cycle("none")

	if got := testutil.ToFloat64(m.cycles.WithLabelValues("none")); got != 1 {
		t.Fatalf("none cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastCycleUnixTS); got != 0 {
		t.Fatalf("last cycle timestamp moved on a skipped cycle: %v", got)
	}
}
