package store

import "sync/atomic"

// entryOverheadBytes approximates the fixed per-entry cost (struct header,
// map bucket slot, pointer) added to key+value length when sizing an entry
// for memory accounting. Mirrors the reference implementation's constant.
const entryOverheadBytes = 64

// Entry is the stored record for one key: value bytes, an optional absolute
// expiry (whole seconds since Unix epoch, 0 = no expiry), and a last-access
// counter in uptime seconds used only by approximate LRU eviction.
//
// value is never mutated in place after being set; SET always installs a
// brand new Entry, so a []byte returned from Get is safe to read without
// copying even though nothing reference-counts it explicitly.
type Entry struct {
	value  []byte
	expiry int64 // 0 means "no expiry"

	lastAccessed atomic.Uint32
}

func newEntry(value []byte, expiry int64, accessedAt uint32) *Entry {
	e := &Entry{value: value, expiry: expiry}
	e.lastAccessed.Store(accessedAt)
	return e
}

func (e *Entry) expired(nowSeconds int64) bool {
	return e.expiry != 0 && nowSeconds >= e.expiry
}

func (e *Entry) size(keyLen int) int {
	return keyLen + len(e.value) + entryOverheadBytes
}
