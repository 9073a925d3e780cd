package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PortalMetrics exposes counters/histograms for store calls, form outcomes and
// account operations.
type PortalMetrics struct {
	storeCalls   *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	formOutcomes *prometheus.CounterVec
	accountOps   *prometheus.CounterVec
	cacheLoads   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		storeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "store",
			Name:      "calls_total",
			Help:      "Document store calls by operation, collection and result",
		}, []string{"op", "collection", "status"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "store",
			Name:      "call_seconds",
			Help:      "Latency of document store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		formOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "forms",
			Name:      "submissions_total",
			Help:      "Form submissions by form and outcome",
		}, []string{"form", "outcome"}),
		accountOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "accounts",
			Name:      "operations_total",
			Help:      "Account lifecycle operations by kind and result",
		}, []string{"kind", "status"}),
		cacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "cache",
			Name:      "loads_total",
			Help:      "Dashboard snapshot loads by surface and result",
		}, []string{"surface", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.storeCalls, m.storeLatency, m.formOutcomes, m.accountOps, m.cacheLoads)
	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveStoreCall satisfies store.Observer.
func (m *PortalMetrics) ObserveStoreCall(op, collection string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.storeCalls.WithLabelValues(op, collection, status(err)).Inc()
	m.storeLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *PortalMetrics) ObserveForm(form, outcome string) {
	if m == nil {
		return
	}
	m.formOutcomes.WithLabelValues(form, outcome).Inc()
}

func (m *PortalMetrics) ObserveAccountOp(kind string, err error) {
	if m == nil {
		return
	}
	m.accountOps.WithLabelValues(kind, status(err)).Inc()
}

func (m *PortalMetrics) ObserveCacheLoad(surface string, err error) {
	if m == nil {
		return
	}
	m.cacheLoads.WithLabelValues(surface, status(err)).Inc()
}
