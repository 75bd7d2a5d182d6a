// Package syncutil provides small concurrency helpers.
package syncutil

import (
	"sync"
)

// ShardedMutex provides keyed locking across a fixed set of shards.
// Callers lock by resource key (here: a tenant's audit chain) and two
// keys only contend when they hash to the same shard.
type ShardedMutex struct {
	shards [32]sync.Mutex
}

// NewShardedMutex creates a ShardedMutex with 32 shards.
func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// Lock acquires the lock for the given key's shard.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the lock for the given key's shard.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// shardFor maps a key to its shard index. Empty keys use shard 0.
func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	var h uint32
	for i := 0; i < len(key); i++ {
		h = h*31 + uint32(key[i])
	}
	return int(h % uint32(len(m.shards)))
}
