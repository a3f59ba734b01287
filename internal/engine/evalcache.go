package engine

import (
	"github.com/dgraph-io/ristretto/v2"
)

// EvalCache memoizes Evaluate results keyed by the position's full Zobrist
// hash. Callers must skip captures and promotions: an eval cached for one
// position's static score is only valid for that exact position, and the
// node reached by a capture/promotion is rarely revisited under the same
// key, so the admission cost isn't worth paying there. Cost-based
// admission (ristretto) means positions that keep getting re-probed across
// deep re-searches tend to survive eviction better than in a plain ring
// buffer of the same size.
type EvalCache struct {
	cache *ristretto.Cache[uint64, int16]
}

// NewEvalCache creates an eval cache sized from a rough entry-count budget.
// Ristretto sizes itself off NumCounters (~10x the expected unique key
// count) and MaxCost (the admitted-item budget); each entry here is a
// single int16 score, so MaxCost is just entries.
func NewEvalCache(entries int64) *EvalCache {
	if entries <= 0 {
		entries = 1 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[uint64, int16]{
		NumCounters: entries * 10,
		MaxCost:     entries,
		BufferItems: 64,
	})
	if err != nil {
		// ristretto.NewCache only fails on invalid config constants above;
		// a cache-free evaluator still works, just without memoization.
		return &EvalCache{cache: nil}
	}
	return &EvalCache{cache: c}
}

// Get returns the cached score for key, if present.
func (ec *EvalCache) Get(key uint64) (int, bool) {
	if ec == nil || ec.cache == nil {
		return 0, false
	}
	v, ok := ec.cache.Get(key)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// Store saves score under key with a unit cost.
func (ec *EvalCache) Store(key uint64, score int) {
	if ec == nil || ec.cache == nil {
		return
	}
	ec.cache.Set(key, int16(score), 1)
}

// Wait blocks until every pending Store has been applied. Ristretto admits
// writes asynchronously through a buffered channel; tests that Store then
// immediately Get need this to avoid a flaky miss on an item still in
// flight.
func (ec *EvalCache) Wait() {
	if ec == nil || ec.cache == nil {
		return
	}
	ec.cache.Wait()
}

// Close releases the cache's background goroutines.
func (ec *EvalCache) Close() {
	if ec == nil || ec.cache == nil {
		return
	}
	ec.cache.Close()
}
