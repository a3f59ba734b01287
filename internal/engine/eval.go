// Package engine implements the Shogi search-and-evaluation engine.
package engine

import (
	"github.com/hailam/chessplay-shogi/internal/board"
)

// Phase is the interpolation point between middlegame and endgame
// evaluation, derived from remaining non-pawn, non-king material.
type Phase int

const (
	totalPhase = 24

	openingPly = 16 // below this ply, opening-only bonuses are live
)

var phaseWeight = [board.NoPieceType]int{
	board.Lance: 1, board.Knight: 1, board.Silver: 1, board.Gold: 1,
	board.Bishop: 2, board.Rook: 2,
	board.Horse: 2, board.Dragon: 2,
}

// gamePhase returns a value in [0, totalPhase]: totalPhase is the
// opening/middlegame extreme, 0 is a bare-bones endgame.
func gamePhase(pos *board.Position) int {
	phase := 0
	for c := board.Black; c <= board.White; c++ {
		for pt := board.Lance; pt < board.NoPieceType; pt++ {
			phase += phaseWeight[pt] * pos.Pieces[c][pt].PopCount()
		}
	}
	if phase > totalPhase {
		phase = totalPhase
	}
	return phase
}

// taper interpolates a (mg, eg) pair by phase, where phase==totalPhase is
// pure middlegame and phase==0 is pure endgame.
func taper(mg, eg, phase int) int {
	return (mg*phase + eg*(totalPhase-phase)) / totalPhase
}

// handValueWeight discounts material held in hand relative to the same
// piece on the board: a piece in hand cannot immediately participate in an
// attack or a defensive formation, so it is worth slightly less until
// dropped.
const handValueWeight = 90 // percent

const tempoBonus = 12

// Evaluate returns a centipawn score for pos from Black's perspective
// (positive favors Black), combining every sub-evaluator below, tapered
// by game phase. This function itself is stateless: it applies no cache
// and no correction history. Worker.evaluate wraps it with the shared
// eval cache and the worker's pawn table and turns the score to the side
// to move's point of view; the search adds the correction-history term.
func Evaluate(pos *board.Position) int {
	return evaluate(pos, nil)
}

// EvaluateWithPawnCache is Evaluate but consults pawnTable (keyed by
// Position.PawnKey) for the pawn-structure sub-score instead of
// recomputing it, letting Worker amortize the scan across the many
// sibling nodes that share a pawn skeleton.
func EvaluateWithPawnCache(pos *board.Position, pawnTable *PawnTable) int {
	return evaluate(pos, pawnTable)
}

func evaluate(pos *board.Position, pawnTable *PawnTable) int {
	phase := gamePhase(pos)

	mg, eg := 0, 0
	m1, e1 := materialMgEg(pos)
	m2, e2 := pstScore(pos)
	m3, e3 := kingSafetyScore(pos)
	m4, e4 := pawnStructureScore(pos, pawnTable)
	m5, e5 := mobilityScore(pos)
	m6, e6 := centerControlScore(pos)
	m7, e7 := developmentScore(pos, phase)
	m8, e8 := tacticalPatternsScore(pos)
	m9, e9 := endgamePatternsScore(pos, phase)

	mg = m1 + m2 + m3 + m4 + m5 + m6 + m7 + m8 + m9
	eg = e1 + e2 + e3 + e4 + e5 + e6 + e7 + e8 + e9

	score := taper(mg, eg, phase)

	if pos.SideToMove == board.Black {
		score += tempoBonus
	} else {
		score -= tempoBonus
	}

	return score
}

// materialMgEg sums board + hand material. Hand material is discounted by
// handValueWeight and does not taper (material value is phase-independent;
// only positional terms taper).
func materialMgEg(pos *board.Position) (int, int) {
	score := 0
	for pt := board.Pawn; pt < board.NoPieceType; pt++ {
		score += pos.Pieces[board.Black][pt].PopCount() * board.PieceValue[pt]
		score -= pos.Pieces[board.White][pt].PopCount() * board.PieceValue[pt]
	}
	for _, pt := range board.HandPieceOrder {
		idx := board.HandIndex(pt)
		handVal := board.PieceValue[pt] * handValueWeight / 100
		score += pos.Hands[board.Black][idx] * handVal
		score -= pos.Hands[board.White][idx] * handVal
	}
	return score, score
}

// pstScore sums the per-(piece, square) table values, mirrored for White
// via Square.Mirror so both sides share one table per piece type.
func pstScore(pos *board.Position) (int, int) {
	mg, eg := 0, 0
	for pt := board.Pawn; pt < board.NoPieceType; pt++ {
		table := pstFor(pt)
		bb := pos.Pieces[board.Black][pt]
		for bb.More() {
			sq := bb.PopLSB()
			mg += table[sq]
			eg += table[sq]
		}
		bb = pos.Pieces[board.White][pt]
		for bb.More() {
			sq := bb.PopLSB()
			mg -= table[sq.Mirror()]
			eg -= table[sq.Mirror()]
		}
	}
	return mg, eg
}

// pstFor returns the piece-square table for pt from Black's point of
// view (RelativeRow 0 is the promotion-zone edge, 8 is home rank). Tables
// are generated from two simple axes, advancement and centrality, rather
// than hand-tuned per-square literals: no tuned Shogi PST data exists in
// the source pack (see DESIGN.md), and a generated table keeps every
// piece's preference (forward-pushing for Pawn/Lance/Knight, centralizing
// for Gold/Silver/Bishop/Rook, safety-seeking for King) explicit in code
// instead of an opaque 81-number blob.
func pstFor(pt board.PieceType) [81]int {
	var table [81]int
	for sq := 0; sq < 81; sq++ {
		s := board.Square(sq)
		rel := s.RelativeRow(board.Black) // 0 = farthest advance, 8 = home
		file := s.Col()
		centrality := 4 - abs8(file-4) // 4 at the center file, 0 at the rim

		switch pt {
		case board.Pawn, board.Lance:
			table[sq] = (8 - rel) * 4
		case board.Knight:
			table[sq] = (8-rel)*3 + centrality
		case board.Silver, board.Gold, board.Tokin, board.PromLance, board.PromKnight, board.PromSilver:
			table[sq] = (8-rel)*2 + centrality*3
		case board.Bishop, board.Horse:
			table[sq] = centrality * 4
		case board.Rook, board.Dragon:
			table[sq] = centrality*2 + (8-rel)
		case board.King:
			// Kings prefer the back two ranks and a rim file (away from
			// the center, where fewer lines converge) in the middlegame;
			// the endgame King PST is handled separately by king-safety
			// and endgame-pattern terms, which taper it toward the center.
			edge := abs8(file - 4)
			table[sq] = rel*2 + edge*2
		}
	}
	return table
}

func abs8(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
