package engine

import "sync/atomic"

// SharedHistory is a history-heuristic table shared across every Lazy-SMP
// worker, letting one worker's cutoffs inform another's move ordering
// immediately instead of only after its own local table warms up. Keyed
// like MoveOrderer.history, by (piece type, destination square), using
// atomics rather than a mutex since the update is a single bounded
// add/subtract that tolerates lost updates under contention.
type SharedHistory struct {
	scores [numPieceTypes][numSquares]atomic.Int64
}

// NewSharedHistory creates an empty shared history table.
func NewSharedHistory() *SharedHistory {
	return &SharedHistory{}
}

// Update adds bonus to the shared score for (pt, to), clamping to keep the
// table from drifting unbounded across a long search.
func (sh *SharedHistory) Update(pt int, to int, bonus int) {
	cell := &sh.scores[pt][to]
	v := cell.Add(int64(bonus))
	if v > 400000 {
		cell.Store(400000)
	} else if v < -400000 {
		cell.Store(-400000)
	}
}

// Get returns the shared score for (pt, to).
func (sh *SharedHistory) Get(pt int, to int) int {
	return int(sh.scores[pt][to].Load())
}

// Clear halves every entry, aging the table between searches.
func (sh *SharedHistory) Clear() {
	for i := range sh.scores {
		for j := range sh.scores[i] {
			sh.scores[i][j].Store(sh.scores[i][j].Load() / 2)
		}
	}
}
