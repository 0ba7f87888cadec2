package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcore "github.com/24digi/authcore"
	"github.com/24digi/authcore/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// Collector defines a public type used by authcore APIs.
//
// Collector instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Collector struct {
	source       metricsSource
	descs        map[authcore.MetricID]*prometheus.Desc
	auditDropped *prometheus.Desc
}

// NewCollector describes the newcollector operation and its observable behavior.
//
// NewCollector may return an error when input validation, dependency calls, or security checks fail.
// NewCollector does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewCollector(engine *authcore.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource describes the newcollectorfromsource operation and its observable behavior.
//
// NewCollectorFromSource may return an error when input validation, dependency calls, or security checks fail.
// NewCollectorFromSource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source: source,
		descs:  make(map[authcore.MetricID]*prometheus.Desc, len(internaldefs.CounterDefs)),
	}
	for _, def := range internaldefs.CounterDefs {
		c.descs[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	c.auditDropped = prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil)
	return c
}

// Describe describes the describe operation and its observable behavior.
//
// Describe may return an error when input validation, dependency calls, or security checks fail.
// Describe does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, def := range internaldefs.CounterDefs {
		ch <- c.descs[def.ID]
	}
	ch <- c.auditDropped
}

// Collect describes the collect operation and its observable behavior.
//
// Collect may return an error when input validation, dependency calls, or security checks fail.
// Collect does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()
	for _, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(c.descs[def.ID], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}
	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// Handler describes the handler operation and its observable behavior.
//
// Handler registers a Collector for engine on a private registry and
// returns the promhttp handler serving it.
func Handler(engine *authcore.Engine) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(engine))
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
