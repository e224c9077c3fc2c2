// Package metrics holds the Prometheus instruments of the resolver.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "endpoint_resolver"

type Metrics struct {
	probeDuration   *prometheus.HistogramVec
	probeOutcomes   *prometheus.CounterVec
	bootstrapFetch  *prometheus.CounterVec
	cycles          *prometheus.CounterVec
	endpoints       *prometheus.GaugeVec
	callRefreshes   *prometheus.CounterVec
	lastCycleUnixTS prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Wall-clock time of latency probes that produced a timing.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"domain"}),
		probeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Latency probes by outcome (timed, failed).",
		}, []string{"domain", "outcome"}),
		bootstrapFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_fetches_total",
			Help:      "Bootstrap configuration fetch attempts by outcome.",
		}, []string{"outcome"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_cycles_total",
			Help:      "Resolution cycles by config source (fresh, memory, cache, none, interrupted).",
		}, []string{"source"}),
		endpoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resolved_endpoints",
			Help:      "Endpoints in the last published map, per service.",
		}, []string{"service"}),
		callRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callservice_refreshes_total",
			Help:      "Call-service endpoint refreshes by outcome.",
		}, []string{"outcome"}),
		lastCycleUnixTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last resolution cycle that published a map.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.probeDuration, m.probeOutcomes, m.bootstrapFetch,
			m.cycles, m.endpoints, m.callRefreshes, m.lastCycleUnixTS,
		)
	}
	return m
}

func (m *Metrics) ObserveProbe(domain string, elapsed time.Duration, ok bool) {
	if m == nil {
		return
	}
	if !ok {
		m.probeOutcomes.WithLabelValues(domain, "failed").Inc()
		return
	}
	m.probeOutcomes.WithLabelValues(domain, "timed").Inc()
	m.probeDuration.WithLabelValues(domain).Observe(elapsed.Seconds())
}

func (m *Metrics) BootstrapFetch(outcome string) {
	if m == nil {
		return
	}
	m.bootstrapFetch.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Cycle(source string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(source).Inc()
}

// CycleCompleted records the time a cycle published a map.
func (m *Metrics) CycleCompleted(at time.Time) {
	if m == nil {
		return
	}
	m.lastCycleUnixTS.Set(float64(at.Unix()))
}

func (m *Metrics) Endpoints(service string, n int) {
	if m == nil {
		return
	}
	m.endpoints.WithLabelValues(service).Set(float64(n))
}

func (m *Metrics) CallRefresh(outcome string) {
	if m == nil {
		return
	}
	m.callRefreshes.WithLabelValues(outcome).Inc()
}
