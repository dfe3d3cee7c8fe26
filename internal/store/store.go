// Package store implements the sharded concurrent keyspace: a fixed-size
// array of independently locked maps keyed by byte strings, with per-entry
// optional expiry and an approximate last-access counter used by eviction.
package store

import (
	"math/rand"
	"time"

	"github.com/redistill/redistill/internal/util"
)

// ShardArray is a fixed-shard concurrent keyspace. N is set at construction
// and never changes; every key is assigned to exactly one shard by a pure
// function of its bytes (FNV-1a modulo N).
type ShardArray struct {
	shards []*shard

	// trackAccess mirrors "never update last_accessed when max_memory == 0":
	// a static decision made once at startup from config, not per-call.
	trackAccess bool

	startedAt time.Time
}

// New constructs a ShardArray with numShards partitions. trackAccess should
// be true iff memory bounding (and therefore LRU eviction) is enabled.
func New(numShards int, trackAccess bool) *ShardArray {
	if numShards < 1 {
		numShards = 1
	}
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = newShard()
	}
	return &ShardArray{shards: shards, trackAccess: trackAccess, startedAt: time.Now()}
}

// NumShards returns the fixed shard count.
func (s *ShardArray) NumShards() int { return len(s.shards) }

// UptimeSeconds returns whole seconds since the ShardArray was constructed,
// used as the "uptime second" counter for last-access tracking.
func (s *ShardArray) UptimeSeconds() uint32 {
	return uint32(time.Since(s.startedAt) / time.Second)
}

func (s *ShardArray) shardFor(key string) *shard {
	idx := util.ShardIndex(util.FNV1aString(key), len(s.shards))
	return s.shards[idx]
}

// Set stores value under key, replacing any existing entry wholesale
// (previous expiry and access time are discarded, not preserved). A zero
// ttlSeconds with hasTTL=true expires the entry at the instant it is set.
func (s *ShardArray) Set(key string, value []byte, hasTTL bool, ttlSeconds uint64, now int64) {
	var expiry int64
	if hasTTL {
		expiry = now + int64(ttlSeconds)
	}
	s.shardFor(key).set(key, value, expiry, s.UptimeSeconds())
}

// Get returns the value for key if present and unexpired, lazily evicting
// an expired entry before reporting absence. Access time is refreshed with
// ~10% probability, and only when the keyspace was constructed with
// trackAccess (i.e. memory bounding is active).
func (s *ShardArray) Get(key string, now int64) ([]byte, bool) {
	return s.shardFor(key).get(key, now, s.trackAccess, sampleAccessUpdate, s.UptimeSeconds())
}

// sampleAccessUpdate reports true with ~10% probability: the fast path for
// approximate LRU, avoiding an unconditional atomic store on every read.
func sampleAccessUpdate() bool {
	return rand.Intn(100) < 10
}

// Delete removes each listed key, bucketing by shard before touching any
// shard so that keys colliding on the same shard share one lock round-trip.
// Returns the count of keys that were actually present.
func (s *ShardArray) Delete(keys []string) int {
	byShard := make(map[int][]string)
	for _, k := range keys {
		idx := util.ShardIndex(util.FNV1aString(k), len(s.shards))
		byShard[idx] = append(byShard[idx], k)
	}
	count := 0
	for idx, ks := range byShard {
		sh := s.shards[idx]
		for _, k := range ks {
			if sh.delete(k) {
				count++
			}
		}
	}
	return count
}

// Exists counts how many of the listed keys have an unexpired entry. It is
// a read-only probe: it never removes expired entries.
func (s *ShardArray) Exists(keys []string, now int64) int {
	count := 0
	for _, k := range keys {
		if s.shardFor(k).exists(k, now) {
			count++
		}
	}
	return count
}

// Keys returns every unexpired key across all shards. The snapshot may tear
// under concurrent mutation; this is an accepted best-effort behavior.
func (s *ShardArray) Keys(now int64) []string {
	var out []string
	for _, sh := range s.shards {
		out = sh.appendUnexpiredKeys(out, now)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Len sums resident entry counts across shards; it may count logically
// expired entries that have not yet been lazily reaped.
func (s *ShardArray) Len() int {
	total := 0
	for _, sh := range s.shards {
		total += sh.len()
	}
	return total
}

// Clear truncates every shard.
func (s *ShardArray) Clear() {
	for _, sh := range s.shards {
		sh.clear()
	}
}

// SampleShard peeks one resident entry from shard idx, for eviction
// sampling. Read-only; does not remove anything.
func (s *ShardArray) SampleShard(idx int) (key string, lastAccessed uint32, size int, ok bool) {
	return s.shards[idx].sample()
}

// EvictAt removes a specific key from shard idx and reports bytes freed.
func (s *ShardArray) EvictAt(idx int, key string) (size int, ok bool) {
	return s.shards[idx].evictAt(key)
}
