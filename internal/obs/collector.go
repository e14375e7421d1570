package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "marketdata"

// Collector exports a Metrics snapshot on every scrape.
type Collector struct {
	metrics *Metrics

	dispatched      *prometheus.Desc
	handled         *prometheus.Desc
	resolved        *prometheus.Desc
	timeouts        *prometheus.Desc
	publishFailures *prometheus.Desc
	lateResponses   *prometheus.Desc
	undecodable     *prometheus.Desc
	commits         *prometheus.Desc
	rollbacks       *prometheus.Desc
	roundTrip       *prometheus.Desc
	tx              *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector wraps m. m may be shared with any number of producers.
func NewCollector(m *Metrics) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		metrics:         m,
		dispatched:      desc("gateway_dispatched_total", "Commands published by the gateway.", "op"),
		handled:         desc("broker_handled_total", "Commands answered by the broker.", "op"),
		resolved:        desc("gateway_resolved_total", "Responses delivered to a waiting caller."),
		timeouts:        desc("gateway_timeouts_total", "Dispatches that expired before a response arrived."),
		publishFailures: desc("gateway_publish_failures_total", "Dispatches whose publish failed."),
		lateResponses:   desc("gateway_late_responses_total", "Responses dropped because no caller was waiting."),
		undecodable:     desc("bus_undecodable_total", "Envelopes dropped because they could not be decoded."),
		commits:         desc("engine_commits_total", "Engine transactions committed."),
		rollbacks:       desc("engine_rollbacks_total", "Engine transactions rolled back."),
		roundTrip:       desc("gateway_round_trip_seconds", "Dispatch to resolution latency."),
		tx:              desc("engine_tx_seconds", "Engine transaction latency."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.dispatched, c.handled, c.resolved, c.timeouts, c.publishFailures,
		c.lateResponses, c.undecodable, c.commits, c.rollbacks, c.roundTrip, c.tx,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.metrics.Snapshot()

	for op, v := range s.Dispatched {
		ch <- prometheus.MustNewConstMetric(c.dispatched, prometheus.CounterValue, float64(v), op.String())
	}
	for op, v := range s.Handled {
		ch <- prometheus.MustNewConstMetric(c.handled, prometheus.CounterValue, float64(v), op.String())
	}

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.resolved, s.Resolved)
	counter(c.timeouts, s.Timeouts)
	counter(c.publishFailures, s.PublishFailures)
	counter(c.lateResponses, s.LateResponses)
	counter(c.undecodable, s.Undecodable)
	counter(c.commits, s.Commits)
	counter(c.rollbacks, s.Rollbacks)

	ch <- prometheus.MustNewConstSummary(c.roundTrip, s.RoundTripLatency.Count, s.RoundTripLatency.Sum.Seconds(), nil)
	ch <- prometheus.MustNewConstSummary(c.tx, s.TxLatency.Count, s.TxLatency.Sum.Seconds(), nil)
}

// Registry returns a registry exporting m next to the Go runtime collectors.
func Registry(m *Metrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(m),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
