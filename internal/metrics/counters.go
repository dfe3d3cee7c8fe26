// Package metrics holds the process-wide counters read by INFO and the
// external health endpoint. The counters are sync/atomic typed atomics,
// which are sequentially consistent in Go; the access pattern here —
// independent counters, no cross-counter invariants — only ever relies on
// per-counter atomicity.
package metrics

import (
	"sync/atomic"
	"time"
)

// Counters is process-wide and shared by every connection handler, the
// accept loop, and the eviction controller.
type Counters struct {
	TotalCommands          atomic.Uint64
	TotalConnections        atomic.Uint64
	ActiveConnections       atomic.Int64
	MemoryUsed              atomic.Uint64
	EvictedKeys             atomic.Uint64
	RejectedConnections     atomic.Uint64
	ConnectionsThisSecond   atomic.Uint64
	LastConnectionCheck     atomic.Int64
	KeyspaceHits            atomic.Uint64
	KeyspaceMisses          atomic.Uint64

	startTime time.Time
}

// New returns a Counters struct with its start time fixed to now.
func New() *Counters {
	return &Counters{startTime: time.Now()}
}

// UptimeSeconds returns whole seconds since the counters (and therefore the
// server) were constructed.
func (c *Counters) UptimeSeconds() int64 {
	return int64(time.Since(c.startTime) / time.Second)
}

// AddMemory adjusts the memory_used gauge by delta (may be negative).
func (c *Counters) AddMemory(delta int64) {
	if delta >= 0 {
		c.MemoryUsed.Add(uint64(delta))
		return
	}
	c.MemoryUsed.Add(^uint64(-delta - 1)) // atomic subtract via two's complement
}
