// Package metrics exposes the Prometheus instrumentation for the
// dispatch engine and context router: queue depth, dispatched/dropped
// packet counters, and live router-instance gauges, following the
// promauto.With(reg).New... idiom grafana-tempo uses throughout its
// ingester/distributor packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every gauge/counter the runtime reports. Construct
// one with New and thread it through dispatch.Engine and router.Router
// via their Option constructors; the zero value is not usable.
type Metrics struct {
	QueueDepth        prometheus.Gauge
	PacketsDispatched *prometheus.CounterVec
	PacketsDropped    *prometheus.CounterVec
	RouterInstances   *prometheus.GaugeVec
}

// New registers and returns a Metrics bundle against reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the global default
// registry; passing nil creates the collectors without registering them
// anywhere.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowmesh",
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Approximate number of packets waiting to be drained by the dispatch loop.",
		}),
		PacketsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowmesh",
			Subsystem: "dispatch",
			Name:      "packets_dispatched_total",
			Help:      "Packets successfully delivered to a destination node's handler.",
		}, []string{"channel"}),
		PacketsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowmesh",
			Subsystem: "dispatch",
			Name:      "packets_dropped_total",
			Help:      "Packets discarded because no matching edge or capability was found.",
		}, []string{"reason"}),
		RouterInstances: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flowmesh",
			Subsystem: "router",
			Name:      "live_instances",
			Help:      "Number of inner instances currently held by a context router.",
		}, []string{"router"}),
	}
}

// Noop returns a Metrics bundle registered against a fresh, private
// registry — useful for tests and for callers who don't want to wire a
// Prometheus registry at all but still need a non-nil Metrics to pass
// around.
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}
