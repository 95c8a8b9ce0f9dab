package event

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the statistics of a Loop as Prometheus metrics.
type Collector struct {
	loop *Loop

	iterations *prometheus.Desc
	dispatched *prometheus.Desc
	panicked   *prometheus.Desc
	removed    *prometheus.Desc
	sources    *prometheus.Desc
	callback   *prometheus.Desc
}

// NewCollector returns a collector for loop. Metric names are prefixed
// with namespace.
func NewCollector(loop *Loop, namespace string) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "event_loop", name), help, nil, nil)
	}

	return &Collector{
		loop:       loop,
		iterations: desc("iterations_total", "Number of completed poller waits."),
		dispatched: desc("callbacks_total", "Number of callbacks invoked."),
		panicked:   desc("callback_panics_total", "Number of callbacks that panicked."),
		removed:    desc("sources_removed_total", "Number of sources removed by their callback."),
		sources:    desc("sources", "Number of registered sources."),
		callback:   desc("callback_seconds_total", "Total time spent in callbacks."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.iterations
	ch <- c.dispatched
	ch <- c.panicked
	ch <- c.removed
	ch <- c.sources
	ch <- c.callback
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.loop.Stats()

	ch <- prometheus.MustNewConstMetric(c.iterations, prometheus.CounterValue, float64(s.Iterations))
	ch <- prometheus.MustNewConstMetric(c.dispatched, prometheus.CounterValue, float64(s.Dispatched))
	ch <- prometheus.MustNewConstMetric(c.panicked, prometheus.CounterValue, float64(s.Panicked))
	ch <- prometheus.MustNewConstMetric(c.removed, prometheus.CounterValue, float64(s.Removed))
	ch <- prometheus.MustNewConstMetric(c.sources, prometheus.GaugeValue, float64(s.Sources))
	ch <- prometheus.MustNewConstMetric(c.callback, prometheus.CounterValue, s.CallbackTime.Seconds())
}
