package engine

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/hailam/chessplay-shogi/internal/board"
	"github.com/hailam/chessplay-shogi/internal/diagnostics"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	Key      uint32     // Upper 32 bits of Zobrist hash for verification
	BestMove board.Move // Best move found
	Score    int16      // Score (bounded by flag)
	Depth    int8       // Search depth
	Flag     TTFlag     // Type of bound
	Age      uint8      // Generation for replacement
}

// Shallow-depth gating (§4.3): at or below ttGateDepth only exact entries
// are stored; from ttExactOnlyDepth up any bound is stored.
const (
	ttGateDepth      = 8
	ttExactOnlyDepth = 9
	numShards        = 64
)

// ttShard is one independently-locked slice of the table. The shard count
// is a power of two so a mixed hash can be masked into a shard index
// cheaply.
type ttShard struct {
	mu      sync.RWMutex
	entries []TTEntry
	mask    uint64
}

// TranspositionTable is a sharded, thread-safe hash table for storing
// search results. A single shared instance is read by every search
// worker; writes under contention are attempted with TryLock and never
// block a searching goroutine.
type TranspositionTable struct {
	shards [numShards]*ttShard
	age    uint32

	attempts atomic.Uint64
	hits     atomic.Uint64
	fails    atomic.Uint64

	diag *diagnostics.Handle
}

// NewTranspositionTable creates a transposition table sized from a total
// MB budget, split evenly across numShards shards.
func NewTranspositionTable(sizeMB int, diag *diagnostics.Handle) *TranspositionTable {
	entrySize := uint64(24) // approximate in-memory size of TTEntry
	totalEntries := roundDownToPowerOf2((uint64(sizeMB) * 1024 * 1024) / entrySize)
	perShard := totalEntries / numShards
	if perShard == 0 {
		perShard = 1
	}
	perShard = roundDownToPowerOf2(perShard)

	tt := &TranspositionTable{diag: diag}
	for i := range tt.shards {
		tt.shards[i] = &ttShard{
			entries: make([]TTEntry, perShard),
			mask:    perShard - 1,
		}
	}
	return tt
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2 (minimum 1).
func roundDownToPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// shardFor mixes the Zobrist key through xxhash before masking, so keys
// that are already well spread by Zobrist XOR do not cluster when only
// their low bits select a shard.
func (tt *TranspositionTable) shardFor(hash uint64) *ttShard {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(hash >> (8 * i))
	}
	mixed := xxhash.Sum64(buf[:])
	return tt.shards[mixed&(numShards-1)]
}

// TryProbe looks up hash without blocking. Returns the entry and true if
// found and at least min_depth; false (and a zero entry) on a miss, a key
// mismatch, or a shard that is currently write-locked.
func (tt *TranspositionTable) TryProbe(hash uint64, minDepth int) (TTEntry, bool) {
	tt.attempts.Add(1)
	shard := tt.shardFor(hash)
	if !shard.mu.TryRLock() {
		tt.fails.Add(1)
		if tt.diag != nil {
			tt.diag.IncTTProbeFail()
		}
		return TTEntry{}, false
	}
	defer shard.mu.RUnlock()

	idx := hash & shard.mask
	entry := shard.entries[idx]
	if entry.Key == uint32(hash>>32) && int(entry.Depth) >= minDepth && entry.Depth > 0 {
		tt.hits.Add(1)
		if tt.diag != nil {
			tt.diag.IncTTHit()
		}
		return entry, true
	}
	return TTEntry{}, false
}

// TryStore attempts to store an entry without blocking, subject to the
// gating and replacement rules in §4.3. Returns false only if the shard
// was locked, in which case the caller should buffer the entry in its
// per-worker ring (see worker.go's ttWriteRing) and retry later; a write
// skipped by gating or by the replacement rule still returns true.
func (tt *TranspositionTable) TryStore(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move) bool {
	if flag != TTExact && depth <= ttGateDepth && depth < ttExactOnlyDepth {
		return true // gated out deliberately; not a failure to retry
	}

	shard := tt.shardFor(hash)
	if !shard.mu.TryLock() {
		tt.fails.Add(1)
		if tt.diag != nil {
			tt.diag.IncTTStoreFail()
		}
		return false
	}
	defer shard.mu.Unlock()

	idx := hash & shard.mask
	entry := &shard.entries[idx]
	age := uint8(atomic.LoadUint32(&tt.age))

	if entry.Age != age || depth >= int(entry.Depth) {
		entry.Key = uint32(hash >> 32)
		entry.BestMove = bestMove
		entry.Score = int16(score)
		entry.Depth = int8(depth)
		entry.Flag = flag
		entry.Age = age
	}
	if tt.diag != nil {
		tt.diag.IncTTStore()
	}
	return true
}

// NewSearch increments the age counter for a new search.
func (tt *TranspositionTable) NewSearch() {
	atomic.AddUint32(&tt.age, 1)
}

// Clear clears every shard of the transposition table.
func (tt *TranspositionTable) Clear() {
	for _, shard := range tt.shards {
		shard.mu.Lock()
		for i := range shard.entries {
			shard.entries[i] = TTEntry{}
		}
		shard.mu.Unlock()
	}
	atomic.StoreUint32(&tt.age, 0)
	tt.hits.Store(0)
	tt.attempts.Store(0)
	tt.fails.Store(0)
}

// HashFull returns the permille (parts per thousand) of the table that is
// used, sampled from the first shard only to avoid locking everything.
func (tt *TranspositionTable) HashFull() int {
	shard := tt.shards[0]
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	age := uint8(atomic.LoadUint32(&tt.age))
	sampleSize := 1000
	if uint64(sampleSize) > shard.mask+1 {
		sampleSize = int(shard.mask + 1)
	}
	used := 0
	for i := 0; i < sampleSize; i++ {
		if shard.entries[i].Depth > 0 && shard.entries[i].Age == age {
			used++
		}
	}
	return (used * 1000) / sampleSize
}

// HitRate returns the cache hit rate as a percentage across all shards.
func (tt *TranspositionTable) HitRate() float64 {
	attempts := tt.attempts.Load()
	if attempts == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(attempts) * 100
}

// AdjustScoreFromTT adjusts a score read from the TT back to root-relative
// terms. Mate scores need to be adjusted based on ply distance.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT adjusts a score for storage in the transposition table.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
