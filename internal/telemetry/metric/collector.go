package metric

import "github.com/prometheus/client_golang/prometheus"

// StatsFunc returns a point-in-time statistic. Collector calls it on every
// scrape rather than having callers push updates continuously, for stats
// that are cheap to compute on demand but awkward to keep incrementally in
// sync (goroutine count, KV store size).
type StatsFunc func() float64

// Collector is a prometheus.Collector that pulls its values from injected
// StatsFuncs at scrape time instead of maintaining its own gauges.
type Collector struct {
	descs []*prometheus.Desc
	funcs []StatsFunc
}

// NewCollector creates a Collector with no metrics registered yet; callers
// add one with AddGauge before passing it to Registry.Register.
func NewCollector() *Collector {
	return &Collector{}
}

// AddGauge registers a pull-based gauge under the given name and help text.
func (c *Collector) AddGauge(name, help string, fn StatsFunc) {
	c.descs = append(c.descs, prometheus.NewDesc(namespace+"_"+name, help, nil, nil))
	c.funcs = append(c.funcs, fn)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for i, fn := range c.funcs {
		ch <- prometheus.MustNewConstMetric(c.descs[i], prometheus.GaugeValue, fn())
	}
}
