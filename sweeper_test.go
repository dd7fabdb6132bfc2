package main

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestSweeper(store *Store, locks *LockManager, metrics *Metrics, sampleFraction, repeatRatio float64) *Sweeper {
	cfg := &Config{
		CleanupGap:     0,
		SampleFraction: sampleFraction,
		RepeatRatio:    repeatRatio,
	}
	return NewSweeper(store, locks, metrics, cfg, zerolog.Nop())
}

func TestSweeperRemovesExpiredKeys(t *testing.T) {
	store := NewStore(4)
	locks := NewLockManager(4)
	metrics := NewMetrics()

	for i := 0; i < 20; i++ {
		key := string(rune('a' + i))
		store.Insert(key, Entry{Value: []byte("v"), ExpirySecs: 1, ExpiryAtMs: 1})
		locks.Acquire(key)
	}

	sweeper := newTestSweeper(store, locks, metrics, 1.0, 0.25)
	sweeper.sweepOnce()

	if store.Len() != 0 {
		t.Errorf("expected all expired keys to be swept, %d remain", store.Len())
	}
}

func TestSweeperLeavesFreshKeysAlone(t *testing.T) {
	store := NewStore(4)
	locks := NewLockManager(4)
	metrics := NewMetrics()

	store.Insert("fresh", Entry{Value: []byte("v"), ExpirySecs: 0, ExpiryAtMs: 0})

	sweeper := newTestSweeper(store, locks, metrics, 1.0, 0.25)
	sweeper.sweepOnce()

	if !store.Contains("fresh") {
		t.Errorf("sweeper must not remove a non-expiring key")
	}
}

func TestSweeperRepeatsWhenExpiredFractionIsHigh(t *testing.T) {
	store := NewStore(4)
	locks := NewLockManager(4)
	metrics := NewMetrics()

	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		store.Insert(key, Entry{Value: []byte("v"), ExpirySecs: 1, ExpiryAtMs: 1})
	}

	sweeper := newTestSweeper(store, locks, metrics, 1.0, 0.25)
	repeat := sweeper.sweepOnce()

	if !repeat {
		t.Errorf("expected sweeper to signal repeat when the whole sample was expired")
	}
}

func TestSweeperDoesNotRepeatOnEmptyStore(t *testing.T) {
	store := NewStore(4)
	locks := NewLockManager(4)
	metrics := NewMetrics()

	sweeper := newTestSweeper(store, locks, metrics, 0.10, 0.25)
	if sweeper.sweepOnce() {
		t.Errorf("an empty store should never ask for a repeat sweep")
	}
}
