package util

// ShardIndex maps a key's 64-bit hash to one of `shards` keyspace
// partitions. num_shards is operator-configured and not guaranteed to be a
// power of two, so the power-of-two bitmask is only a fast path; the
// modulo fallback keeps arbitrary shard counts correct.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(shards)) {
		return int(hash & uint64(shards-1))
	}
	return int(hash % uint64(shards))
}
