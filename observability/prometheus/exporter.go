// Package prometheus exports pool monitoring counters as Prometheus metrics.
package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/poolworks/executor/pool"
)

// StatsSource is the slice of a pool the collector reads. Every pool.Pool
// instantiation satisfies it.
type StatsSource interface {
	Stats() pool.Stats
}

// Collector exposes a pool's Stats snapshot as Prometheus metrics. Values
// are read at scrape time; nothing is pushed from the pool's hot path.
type Collector struct {
	source StatsSource

	liveWorkers    *prom.Desc
	activeWorkers  *prom.Desc
	queueDepth     *prom.Desc
	queueCapacity  *prom.Desc
	completedTasks *prom.Desc
	rejectedTasks  *prom.Desc
	state          *prom.Desc
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector builds a collector for source. namespace defaults to
// "executor"; poolName becomes the "pool" label on every series.
func NewCollector(namespace, poolName string, source StatsSource) *Collector {
	if namespace == "" {
		namespace = "executor"
	}
	labels := prom.Labels{"pool": poolName}

	return &Collector{
		source: source,
		liveWorkers: prom.NewDesc(
			prom.BuildFQName(namespace, "", "live_workers"),
			"Number of worker goroutines currently alive.", nil, labels),
		activeWorkers: prom.NewDesc(
			prom.BuildFQName(namespace, "", "active_workers"),
			"Number of workers currently executing a task.", nil, labels),
		queueDepth: prom.NewDesc(
			prom.BuildFQName(namespace, "", "queue_depth"),
			"Number of tasks waiting in the work queue.", nil, labels),
		queueCapacity: prom.NewDesc(
			prom.BuildFQName(namespace, "", "queue_capacity"),
			"Work queue capacity; -1 when unbounded.", nil, labels),
		completedTasks: prom.NewDesc(
			prom.BuildFQName(namespace, "", "completed_tasks_total"),
			"Total tasks that finished executing.", nil, labels),
		rejectedTasks: prom.NewDesc(
			prom.BuildFQName(namespace, "", "rejected_tasks_total"),
			"Total submissions handled by the rejection path.", nil, labels),
		state: prom.NewDesc(
			prom.BuildFQName(namespace, "", "state"),
			"Pool lifecycle state: 0 running, 1 shutting down, 2 stopped, 3 terminated.",
			nil, labels),
	}
}

// Register registers the collector, tolerating an identical collector already
// being present.
func (c *Collector) Register(reg prom.Registerer) error {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prom.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

func (c *Collector) Describe(ch chan<- *prom.Desc) {
	ch <- c.liveWorkers
	ch <- c.activeWorkers
	ch <- c.queueDepth
	ch <- c.queueCapacity
	ch <- c.completedTasks
	ch <- c.rejectedTasks
	ch <- c.state
}

func (c *Collector) Collect(ch chan<- prom.Metric) {
	s := c.source.Stats()

	ch <- prom.MustNewConstMetric(c.liveWorkers, prom.GaugeValue, float64(s.LiveWorkers))
	ch <- prom.MustNewConstMetric(c.activeWorkers, prom.GaugeValue, float64(s.ActiveWorkers))
	ch <- prom.MustNewConstMetric(c.queueDepth, prom.GaugeValue, float64(s.QueueDepth))
	ch <- prom.MustNewConstMetric(c.queueCapacity, prom.GaugeValue, float64(s.QueueCapacity))
	ch <- prom.MustNewConstMetric(c.completedTasks, prom.CounterValue, float64(s.CompletedTasks))
	ch <- prom.MustNewConstMetric(c.rejectedTasks, prom.CounterValue, float64(s.RejectedTasks))
	ch <- prom.MustNewConstMetric(c.state, prom.GaugeValue, float64(s.State))
}
