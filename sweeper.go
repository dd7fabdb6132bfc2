package main

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Sweeper periodically removes expired entries from the store using
// random sampling: each tick it samples a fraction of the store's current
// size, looking for expired keys, and removes whatever it finds. If the
// expired fraction of the sample is high, it repeats immediately instead
// of waiting out the full cleanup gap, to drain expiry pressure faster.
type Sweeper struct {
	store       *Store
	locks       *LockManager
	metrics     *Metrics
	cleanupGap  time.Duration
	sampleFrac  float64
	repeatRatio float64
	logger      zerolog.Logger
}

func NewSweeper(store *Store, locks *LockManager, metrics *Metrics, cfg *Config, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:       store,
		locks:       locks,
		metrics:     metrics,
		cleanupGap:  cfg.CleanupGap,
		sampleFrac:  cfg.SampleFraction,
		repeatRatio: cfg.RepeatRatio,
		logger:      logger,
	}
}

// Run loops sweep passes until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	for {
		repeat := s.sweepOnce()

		s.metrics.SetStoreSize(s.store.Len())

		if repeat {
			select {
			case <-ctx.Done():
				return nil
			default:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cleanupGap):
		}
	}
}

// sweepOnce performs one sweep pass and reports whether the caller should
// repeat immediately without sleeping (expired fraction exceeded the
// repeat ratio).
func (s *Sweeper) sweepOnce() bool {
	target := int(math.Floor(float64(s.store.Len()) * s.sampleFrac))
	if target <= 0 {
		return false
	}

	expired := s.sampleExpiredKeys(target)
	for _, key := range expired {
		deleteExpired(key, s.store, s.locks)
	}
	s.metrics.RecordEvicted(len(expired))

	if len(expired) > 0 {
		s.logger.Debug().Int("sampled", target).Int("evicted", len(expired)).Msg("sweep pass")
	}

	if len(expired) == 0 {
		return false
	}
	return float64(len(expired)) > s.repeatRatio*float64(target)
}

// sampleExpiredKeys scans shards concurrently (bounded worker pool), each
// worker walking its shard's entries until either the shard is exhausted
// or the shared budget has been met. The budget check is best-effort: two
// shards racing near the end of the budget may together slightly overshoot
// it, which is fine for a statistical eviction pass.
func (s *Sweeper) sampleExpiredKeys(target int) []string {
	now := nowMs()
	var mu lockedSlice
	p := pool.New().WithMaxGoroutines(s.store.NumShards())

	for i := 0; i < s.store.NumShards(); i++ {
		shardIdx := i
		p.Go(func() {
			s.store.RangeShard(shardIdx, func(key string, e Entry) bool {
				if mu.len() >= target {
					return false
				}
				if !e.Fresh(now) {
					mu.append(key)
				}
				return mu.len() < target
			})
		})
	}
	p.Wait()
	return mu.snapshot()
}

// lockedSlice is a tiny concurrency-safe string accumulator shared by the
// sweeper's per-shard workers.
type lockedSlice struct {
	mu    sync.Mutex
	items []string
}

func (l *lockedSlice) append(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, s)
}

func (l *lockedSlice) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *lockedSlice) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}
