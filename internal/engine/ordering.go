package engine

import (
	"github.com/hailam/chessplay-shogi/internal/board"
)

// Move ordering priorities.
const (
	TTMoveScore     = 10000000 // TT move gets highest priority
	GoodCaptureBase = 1000000  // Base score for good captures
	KillerScore1    = 900000   // First killer move
	KillerScore2    = 800000   // Second killer move
	BadCaptureBase  = -100000  // Losing captures
)

const numPieceTypes = int(board.NoPieceType)
const numSquares = 81

// MoveOrderer holds the per-worker ordering heuristics: killers, history,
// counter moves, and capture/countermove history. Each search Worker owns
// its own instance so workers never contend on these tables.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move

	// History heuristic, keyed by (moving piece type, destination square)
	// rather than (from, to): a drop has no origin square, so keying on
	// the piece type generalizes cleanly to both board moves and drops.
	history [numPieceTypes][numSquares]int

	// Counter move heuristic, keyed by (previous move's piece type, its
	// destination square).
	counterMoves [numPieceTypes][numSquares]board.Move

	// Capture history, keyed by (attacker piece type, destination square,
	// victim piece type).
	captureHistory [numPieceTypes][numSquares][numPieceTypes]int

	// Countermove history, keyed by (previous piece type, previous
	// destination, this move's piece type, this move's destination).
	countermoveHistory [numPieceTypes][numSquares][numPieceTypes][numSquares]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets killers and counter moves, and ages (halves) the history
// tables for a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}
	for i := range mo.counterMoves {
		for j := range mo.counterMoves[i] {
			mo.counterMoves[i][j] = board.NoMove
		}
	}
	mo.scaleCaptureHistory()
	mo.scaleCountermoveHistory()
}

// ScoreMoves assigns ordering scores to every move in the list.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, ply int, ttMove board.Move) []int {
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, ttMove)
	}
	return scores
}

// ScoreMovesWithCounter assigns scores including a counter-move and
// countermove-history bonus relative to prevMove.
func (mo *MoveOrderer) ScoreMovesWithCounter(pos *board.Position, moves *board.MoveList, ply int, ttMove, prevMove board.Move) []int {
	scores := make([]int, moves.Len())
	counterMove := mo.GetCounterMove(prevMove)

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		scores[i] = mo.scoreMove(pos, m, ply, ttMove)

		if m == counterMove && scores[i] < KillerScore2 {
			scores[i] = KillerScore2 - 10000
		}

		if m.IsQuiet() && m != ttMove {
			cmh := mo.GetCountermoveHistoryScore(prevMove, m)
			scores[i] += cmh / 2
		}
	}
	return scores
}

// scoreMove returns the ordering score for a single move.
func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return TTMoveScore
	}

	if m.IsCapture() {
		attacker := m.Piece
		victim := m.Captured

		score := GoodCaptureBase + (board.PieceValue[victim]*10-board.PieceValue[attacker])*10
		score += mo.GetCaptureHistoryScore(attacker, m.To, victim) / 4

		if board.PieceValue[attacker] < board.PieceValue[victim] {
			score += 10000
		}
		return score
	}

	if m.Promote {
		return GoodCaptureBase - 1000 + board.PieceValue[m.Piece]
	}

	if m == mo.killers[ply][0] {
		return KillerScore1
	}
	if m == mo.killers[ply][1] {
		return KillerScore2
	}

	return mo.history[m.Piece][m.To]
}

// SortMoves sorts moves by their scores, descending. A selection sort is
// sufficient for Shogi's branching factor of a few hundred moves.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}

// PickMove selects the best remaining move and moves it to position
// index, allowing lazy sorting: only as many moves are sorted as the
// search actually examines before a cutoff.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers adds a killer move at the given ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly {
		return
	}
	if mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory updates the history score for a quiet cutting move.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int, isGood bool) {
	bonus := depth * depth
	cell := &mo.history[m.Piece][m.To]
	if isGood {
		*cell += bonus
		if *cell > 400000 {
			for i := range mo.history {
				for j := range mo.history[i] {
					mo.history[i][j] /= 2
				}
			}
		}
	} else {
		*cell -= bonus
		if *cell < -400000 {
			*cell = -400000
		}
	}
}

// UpdateCounterMove records counterMove as the reply to prevMove.
func (mo *MoveOrderer) UpdateCounterMove(prevMove, counterMove board.Move) {
	if prevMove.IsNull() {
		return
	}
	mo.counterMoves[prevMove.Piece][prevMove.To] = counterMove
}

// GetCounterMove returns the recorded reply to prevMove, if any.
func (mo *MoveOrderer) GetCounterMove(prevMove board.Move) board.Move {
	if prevMove.IsNull() {
		return board.NoMove
	}
	return mo.counterMoves[prevMove.Piece][prevMove.To]
}

// GetHistoryScore returns the history score for m, used by history-based
// pruning at shallow depths.
func (mo *MoveOrderer) GetHistoryScore(m board.Move) int {
	return mo.history[m.Piece][m.To]
}

// UpdateCaptureHistory updates the capture history for a capturing move.
func (mo *MoveOrderer) UpdateCaptureHistory(attacker board.PieceType, to board.Square, victim board.PieceType, depth int, isGood bool) {
	bonus := depth * depth
	cell := &mo.captureHistory[attacker][to][victim]
	if isGood {
		*cell += bonus
		if *cell > 400000 {
			mo.scaleCaptureHistory()
		}
	} else {
		*cell -= bonus
		if *cell < -400000 {
			*cell = -400000
		}
	}
}

func (mo *MoveOrderer) scaleCaptureHistory() {
	for i := range mo.captureHistory {
		for j := range mo.captureHistory[i] {
			for k := range mo.captureHistory[i][j] {
				mo.captureHistory[i][j][k] /= 2
			}
		}
	}
}

// GetCaptureHistoryScore returns the capture history score for a capture.
func (mo *MoveOrderer) GetCaptureHistoryScore(attacker board.PieceType, to board.Square, victim board.PieceType) int {
	return mo.captureHistory[attacker][to][victim]
}

// UpdateCountermoveHistory updates the CMH table for a quiet cutting move
// that followed prevMove.
func (mo *MoveOrderer) UpdateCountermoveHistory(prevMove, goodMove board.Move, depth int, isGood bool) {
	if prevMove.IsNull() {
		return
	}
	bonus := depth * depth
	cell := &mo.countermoveHistory[prevMove.Piece][prevMove.To][goodMove.Piece][goodMove.To]
	if isGood {
		*cell += bonus
		if *cell > 400000 {
			mo.scaleCountermoveHistory()
		}
	} else {
		*cell -= bonus
		if *cell < -400000 {
			*cell = -400000
		}
	}
}

func (mo *MoveOrderer) scaleCountermoveHistory() {
	for i := range mo.countermoveHistory {
		for j := range mo.countermoveHistory[i] {
			for k := range mo.countermoveHistory[i][j] {
				for l := range mo.countermoveHistory[i][j][k] {
					mo.countermoveHistory[i][j][k][l] /= 2
				}
			}
		}
	}
}

// GetCountermoveHistoryScore returns the CMH score for m given prevMove.
func (mo *MoveOrderer) GetCountermoveHistoryScore(prevMove, m board.Move) int {
	if prevMove.IsNull() {
		return 0
	}
	return mo.countermoveHistory[prevMove.Piece][prevMove.To][m.Piece][m.To]
}
