package eviction

import "github.com/redistill/redistill/internal/metrics"

// maxSampleRounds caps the outer eviction loop so a pathological workload
// (e.g. every shard empty) cannot spin forever. Matches the reference
// implementation's attempt cap.
const maxSampleRounds = 100

// Controller implements spec section 4.5's admission check on SET's write
// path: a zero-cost bypass when unbounded, a fast-path admit when there is
// already enough headroom, and policy-driven sampling eviction otherwise.
type Controller struct {
	maxMemory  uint64
	policy     Policy
	sampleSize int
	counters   *metrics.Counters
}

// NewController builds a Controller. maxMemory == 0 disables bounding
// entirely (Admit always succeeds without touching the store).
func NewController(maxMemory uint64, policyName string, sampleSize int, counters *metrics.Counters) *Controller {
	return &Controller{
		maxMemory:  maxMemory,
		policy:     New(policyName),
		sampleSize: sampleSize,
		counters:   counters,
	}
}

// Enabled reports whether memory bounding is active (max_memory > 0).
func (c *Controller) Enabled() bool { return c.maxMemory > 0 }

// PolicyName reports the effective, normalized eviction policy name, which
// may differ from whatever string NewController was given (an unknown name
// normalizes to "allkeys-lru").
func (c *Controller) PolicyName() string { return c.policy.Name() }

// Admit decides whether a write of `needed` additional bytes may proceed.
// When it returns false, the caller must not mutate the store. When it
// evicts entries to make room, it updates MemoryUsed/EvictedKeys itself;
// the caller is still responsible for adding `needed` to MemoryUsed once
// the write actually happens.
func (c *Controller) Admit(store Store, needed int) bool {
	if c.maxMemory == 0 {
		return true
	}
	if c.counters.MemoryUsed.Load()+uint64(needed) <= c.maxMemory {
		return true
	}

	freed := 0
	for attempts := 0; attempts < maxSampleRounds && freed < needed; attempts++ {
		f, ok := c.policy.EvictOnce(store, c.sampleSize)
		if !ok {
			continue
		}
		freed += f
		c.counters.AddMemory(-int64(f))
		c.counters.EvictedKeys.Add(1)
	}
	return freed >= needed
}
