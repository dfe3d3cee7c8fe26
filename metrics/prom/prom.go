// Package prom exports internal/metrics.Counters as Prometheus collectors,
// wired behind the health endpoint's optional /metrics route.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/redistill/redistill/internal/metrics"
)

// Adapter is a prometheus.Collector snapshotting Counters on each scrape.
// Safe for concurrent use; registration happens once at construction.
type Adapter struct {
	counters *metrics.Counters

	totalCommands       *prometheus.Desc
	totalConnections    *prometheus.Desc
	activeConnections   *prometheus.Desc
	memoryUsed          *prometheus.Desc
	evictedKeys         *prometheus.Desc
	rejectedConnections *prometheus.Desc
	keyspaceHits        *prometheus.Desc
	keyspaceMisses      *prometheus.Desc
}

// New constructs a Prometheus adapter over counters and registers it with
// reg (nil => prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer, counters *metrics.Counters, ns, sub string) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(ns, sub, name), help, nil, nil)
	}
	a := &Adapter{
		counters:            counters,
		totalCommands:       desc("commands_total", "Total commands processed"),
		totalConnections:    desc("connections_total", "Total connections accepted"),
		activeConnections:   desc("active_connections", "Currently open connections"),
		memoryUsed:          desc("memory_used_bytes", "Approximate resident memory in bytes"),
		evictedKeys:         desc("evicted_keys_total", "Total keys evicted"),
		rejectedConnections: desc("rejected_connections_total", "Total connections rejected at admission"),
		keyspaceHits:        desc("keyspace_hits_total", "Total GET hits"),
		keyspaceMisses:      desc("keyspace_misses_total", "Total GET misses"),
	}
	reg.MustRegister(a)
	return a
}

// Describe implements prometheus.Collector.
func (a *Adapter) Describe(ch chan<- *prometheus.Desc) {
	ch <- a.totalCommands
	ch <- a.totalConnections
	ch <- a.activeConnections
	ch <- a.memoryUsed
	ch <- a.evictedKeys
	ch <- a.rejectedConnections
	ch <- a.keyspaceHits
	ch <- a.keyspaceMisses
}

// Collect implements prometheus.Collector, snapshotting each counter.
func (a *Adapter) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(a.totalCommands, prometheus.CounterValue, float64(a.counters.TotalCommands.Load()))
	ch <- prometheus.MustNewConstMetric(a.totalConnections, prometheus.CounterValue, float64(a.counters.TotalConnections.Load()))
	ch <- prometheus.MustNewConstMetric(a.activeConnections, prometheus.GaugeValue, float64(a.counters.ActiveConnections.Load()))
	ch <- prometheus.MustNewConstMetric(a.memoryUsed, prometheus.GaugeValue, float64(a.counters.MemoryUsed.Load()))
	ch <- prometheus.MustNewConstMetric(a.evictedKeys, prometheus.CounterValue, float64(a.counters.EvictedKeys.Load()))
	ch <- prometheus.MustNewConstMetric(a.rejectedConnections, prometheus.CounterValue, float64(a.counters.RejectedConnections.Load()))
	ch <- prometheus.MustNewConstMetric(a.keyspaceHits, prometheus.CounterValue, float64(a.counters.KeyspaceHits.Load()))
	ch <- prometheus.MustNewConstMetric(a.keyspaceMisses, prometheus.CounterValue, float64(a.counters.KeyspaceMisses.Load()))
}

var _ prometheus.Collector = (*Adapter)(nil)
