package store

import (
	"sync"

	"github.com/redistill/redistill/internal/util"
)

// shard is one fixed partition of the keyspace: an independent lock plus a
// plain Go map. Unlike the teacher's shard, there is no intrusive MRU/LRU
// list — exact LRU is explicitly a non-goal here, so recency lives only in
// each Entry's lastAccessed counter, sampled approximately by the eviction
// controller (internal/eviction).
type shard struct {
	mu sync.RWMutex
	m  map[string]*Entry

	_      util.CacheLinePad
	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
}

func newShard() *shard {
	return &shard{m: make(map[string]*Entry)}
}

// set replaces or inserts an entry unconditionally, discarding any previous
// expiry or access time. No return value, matching the keyspace contract.
func (s *shard) set(key string, value []byte, expiry int64, accessedAt uint32) {
	s.mu.Lock()
	s.m[key] = newEntry(value, expiry, accessedAt)
	s.mu.Unlock()
}

// get returns the value for key if present and unexpired. An expired entry
// is removed before reporting absence. trackAccess gates the probabilistic
// last-access update (disabled entirely when memory bounding is off).
func (s *shard) get(key string, nowSeconds int64, trackAccess bool, sampleAccess func() bool, uptimeSeconds uint32) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.m[key]
	if !ok {
		s.mu.RUnlock()
		s.misses.Add(1)
		return nil, false
	}
	if e.expired(nowSeconds) {
		s.mu.RUnlock()
		s.mu.Lock()
		// Re-check under the write lock: another goroutine may have already
		// deleted or replaced this key.
		if cur, stillThere := s.m[key]; stillThere && cur == e {
			delete(s.m, key)
		}
		s.mu.Unlock()
		s.misses.Add(1)
		return nil, false
	}
	value := e.value
	s.mu.RUnlock()
	s.hits.Add(1)
	if trackAccess && sampleAccess() {
		e.lastAccessed.Store(uptimeSeconds)
	}
	return value, true
}

// exists reports presence of an unexpired entry without mutating anything.
func (s *shard) exists(key string, nowSeconds int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[key]
	if !ok {
		return false
	}
	return e.expiry == 0 || e.expiry > nowSeconds
}

// delete removes key if present, returning whether it was found.
func (s *shard) delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok {
		return false
	}
	delete(s.m, key)
	return true
}

// appendUnexpiredKeys appends every unexpired key in the shard to dst.
func (s *shard) appendUnexpiredKeys(dst []string, nowSeconds int64) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, e := range s.m {
		if e.expiry == 0 || e.expiry > nowSeconds {
			dst = append(dst, k)
		}
	}
	return dst
}

func (s *shard) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *shard) clear() {
	s.mu.Lock()
	s.m = make(map[string]*Entry)
	s.mu.Unlock()
}

// sample peeks at one arbitrary resident entry (Go's map iteration order is
// randomized per-range, so "first entry" is already a reasonable uniform
// pick within the shard). Used by the eviction controller; read-only.
func (s *shard) sample() (key string, lastAccessed uint32, sz int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, e := range s.m {
		return k, e.lastAccessed.Load(), e.size(len(k)), true
	}
	return "", 0, 0, false
}

// evictAt removes a specific key (used by the eviction controller after
// sampling) and reports the bytes freed.
func (s *shard) evictAt(key string) (sz int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.m[key]
	if !exists {
		return 0, false
	}
	sz = e.size(len(key))
	delete(s.m, key)
	return sz, true
}
