package main

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// LockManager mirrors the key set of a Store, handing out a per-key
// *sync.RWMutex so the executor can serialize read-modify-write sequences
// (Append/Prepend/Add/Replace) against concurrent operations on the same
// key, without blocking operations on unrelated keys.
type LockManager struct {
	shards []*lockShard
	mask   uint64
}

type lockShard struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewLockManager builds a LockManager with numShards shards, matching the
// Store's sharding scheme so the two stay in lock-step.
func NewLockManager(numShards int) *LockManager {
	if numShards < 1 {
		numShards = 1
	}
	n := nextPowerOfTwo(numShards)
	shards := make([]*lockShard, n)
	for i := range shards {
		shards[i] = &lockShard{locks: make(map[string]*sync.RWMutex)}
	}
	return &LockManager{shards: shards, mask: uint64(n - 1)}
}

func (m *LockManager) shardFor(key string) *lockShard {
	h := xxhash.Sum64String(key)
	return m.shards[h&m.mask]
}

// Acquire returns the lock for key, creating it if it does not yet exist.
func (m *LockManager) Acquire(key string) *sync.RWMutex {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	l, ok := sh.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		sh.locks[key] = l
	}
	return l
}

// Remove deletes the lock entry for key. It does not touch the mutex
// itself: a caller holding it may unlock it afterwards, and a later Acquire
// for key creates a new one.
func (m *LockManager) Remove(key string) {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.locks, key)
}

// Contains reports whether a lock entry exists for key.
func (m *LockManager) Contains(key string) bool {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.locks[key]
	return ok
}
