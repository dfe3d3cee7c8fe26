package eviction

import (
	"testing"

	"github.com/redistill/redistill/internal/metrics"
)

// fakeStore is an in-memory single-shard stand-in for internal/store used
// to test eviction policies without depending on the store package.
type fakeStore struct {
	entries map[string]fakeEntry
}

type fakeEntry struct {
	lastAccessed uint32
	size         int
}

func newFakeStore() *fakeStore { return &fakeStore{entries: make(map[string]fakeEntry)} }

func (f *fakeStore) NumShards() int { return 1 }

func (f *fakeStore) SampleShard(int) (string, uint32, int, bool) {
	for k, e := range f.entries {
		return k, e.lastAccessed, e.size, true
	}
	return "", 0, 0, false
}

func (f *fakeStore) EvictAt(_ int, key string) (int, bool) {
	e, ok := f.entries[key]
	if !ok {
		return 0, false
	}
	delete(f.entries, key)
	return e.size, true
}

func TestNoEvictionNeverEvicts(t *testing.T) {
	store := newFakeStore()
	store.entries["a"] = fakeEntry{lastAccessed: 1, size: 10}
	p := New("noeviction")
	freed, ok := p.EvictOnce(store, 5)
	if ok || freed != 0 {
		t.Fatal("noeviction must never evict")
	}
	if len(store.entries) != 1 {
		t.Fatal("store must be unchanged")
	}
}

func TestUnknownPolicyFallsBackToLRU(t *testing.T) {
	if _, ok := New("bogus").(allKeysLRU); !ok {
		t.Fatal("unknown policy must fall back to allkeys-lru")
	}
}

func TestAllKeysLRUEvictsOldest(t *testing.T) {
	store := newFakeStore()
	store.entries["old"] = fakeEntry{lastAccessed: 1, size: 10}
	store.entries["new"] = fakeEntry{lastAccessed: 100, size: 10}
	p := New("allkeys-lru")

	// Take enough samples per call to see both candidates with high probability.
	var freed int
	var ok bool
	for i := 0; i < 50; i++ {
		freed, ok = p.EvictOnce(store, 200)
		if ok {
			break
		}
	}
	if !ok {
		t.Fatal("expected an eviction")
	}
	if freed != 10 {
		t.Fatalf("want 10 bytes freed, got %d", freed)
	}
	if _, stillThere := store.entries["old"]; stillThere {
		t.Fatal("want the entry with the oldest last access evicted")
	}
}

func TestAllKeysRandomEvictsSomething(t *testing.T) {
	store := newFakeStore()
	store.entries["a"] = fakeEntry{lastAccessed: 1, size: 10}
	p := New("allkeys-random")
	freed, ok := p.EvictOnce(store, 0)
	if !ok || freed != 10 {
		t.Fatalf("want eviction of 10 bytes, got freed=%d ok=%v", freed, ok)
	}
	if len(store.entries) != 0 {
		t.Fatal("entry must be removed")
	}
}

func TestControllerRefusesUnderNoEvictionWhenOverBudget(t *testing.T) {
	store := newFakeStore()
	store.entries["a"] = fakeEntry{lastAccessed: 1, size: 95}
	counters := metrics.New()
	counters.MemoryUsed.Store(95)

	c := NewController(100, "noeviction", 5, counters)
	if c.Admit(store, 20) {
		t.Fatal("noeviction over budget must refuse admission")
	}
	if counters.MemoryUsed.Load() != 95 {
		t.Fatal("refused admission must not mutate memory_used")
	}
}

func TestControllerZeroMaxMemoryAlwaysAdmits(t *testing.T) {
	store := newFakeStore()
	counters := metrics.New()
	c := NewController(0, "noeviction", 5, counters)
	if !c.Admit(store, 1<<30) {
		t.Fatal("max_memory=0 must always admit")
	}
}

func TestControllerEvictsUntilEnoughFreed(t *testing.T) {
	store := newFakeStore()
	store.entries["a"] = fakeEntry{lastAccessed: 1, size: 50}
	store.entries["b"] = fakeEntry{lastAccessed: 2, size: 50}
	counters := metrics.New()
	counters.MemoryUsed.Store(100)

	c := NewController(100, "allkeys-lru", 2, counters)
	if !c.Admit(store, 40) {
		t.Fatal("want admission after eviction frees enough space")
	}
	if counters.EvictedKeys.Load() == 0 {
		t.Fatal("want evicted_keys incremented")
	}
}
