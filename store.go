package main

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Store is a sharded, concurrency-safe map from key to Entry. Each shard is
// guarded independently so operations on different keys rarely contend.
type Store struct {
	shards []*storeShard
	mask   uint64
}

type storeShard struct {
	mu   sync.RWMutex
	data map[string]*Entry
}

// NewStore builds a Store with numShards independently-locked shards.
// numShards should be a power of two; it is rounded up if not.
func NewStore(numShards int) *Store {
	if numShards < 1 {
		numShards = 1
	}
	n := nextPowerOfTwo(numShards)
	shards := make([]*storeShard, n)
	for i := range shards {
		shards[i] = &storeShard{data: make(map[string]*Entry)}
	}
	return &Store{shards: shards, mask: uint64(n - 1)}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (s *Store) shardFor(key string) *storeShard {
	h := xxhash.Sum64String(key)
	return s.shards[h&s.mask]
}

// Get returns the entry for key and whether it was present. It does not
// check freshness; callers decide what "fresh" means for their operation.
func (s *Store) Get(key string) (Entry, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.data[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Insert stores (or replaces) the entry for key.
func (s *Store) Insert(key string, e Entry) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.data[key] = &e
}

// Remove deletes key from the store, if present.
func (s *Store) Remove(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.data, key)
}

// Contains reports whether key is present, regardless of freshness.
func (s *Store) Contains(key string) bool {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, ok := sh.data[key]
	return ok
}

// Len returns the approximate total number of entries across all shards.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.data)
		sh.mu.RUnlock()
	}
	return total
}

// NumShards returns the number of shards backing the store.
func (s *Store) NumShards() int {
	return len(s.shards)
}

// RangeShard invokes fn for every key/entry pair in shard index i, stopping
// early if fn returns false. It takes a read lock on the shard for the
// duration of the callback.
func (s *Store) RangeShard(i int, fn func(key string, e Entry) bool) {
	sh := s.shards[i]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	for k, e := range sh.data {
		if !fn(k, *e) {
			return
		}
	}
}

// Range invokes fn for every key/entry pair in the store, in unspecified
// order, stopping early if fn returns false. It is built from RangeShard,
// walking shards one at a time; callers needing concurrent per-shard scans
// (the sweeper) should call RangeShard directly instead.
func (s *Store) Range(fn func(key string, e Entry) bool) {
	for i := range s.shards {
		stop := false
		s.RangeShard(i, func(key string, e Entry) bool {
			if !fn(key, e) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}
