package util

import (
	"sync/atomic"
	"unsafe"
)

// cacheLineSize is a reasonable default for most modern CPUs; the standard
// library's runtime/internal/sys.CacheLineSize is unexported, so 64 is
// hardcoded here as it is across the Go ecosystem.
const cacheLineSize = 64

// CacheLinePad separates a shard's lock+map from its hit/miss counters so
// the two live on different cache lines: one goroutine spinning on the
// RWMutex must not also bounce the counter's cache line.
type CacheLinePad struct{ _ [cacheLineSize]byte }

// PaddedAtomicUint64 is an atomic counter padded to exactly one cache line,
// used for the per-shard hit/miss counters so adjacent shards' counters
// never false-share a cache line under concurrent access.
type PaddedAtomicUint64 struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

var _ [cacheLineSize - int(unsafe.Sizeof(PaddedAtomicUint64{}))]byte
