package engine

import (
	"sync/atomic"
	"testing"

	"github.com/hailam/chessplay-shogi/internal/board"
)

func newTestWorker() *Worker {
	tt := NewTranspositionTable(1, nil)
	pt := NewPawnTable(1)
	ec := NewEvalCache(1024)
	sh := NewSharedHistory()
	var stopFlag atomic.Bool
	return NewWorker(0, tt, pt, ec, sh, &stopFlag, nil)
}

func TestWorkerIsDrawOnFourfoldRepetition(t *testing.T) {
	w := newTestWorker()
	pos := board.NewPosition()
	w.InitSearch(pos)

	if w.isDraw() {
		t.Fatal("a position visited once should not be a draw")
	}

	// Simulate the same position having been reached three times before
	// (sennichite requires the fourth occurrence, not the first repeat).
	w.posHistoryBuffer[w.posHistoryLen] = pos.Hash
	w.posHistoryLen++
	w.posHistoryBuffer[w.posHistoryLen] = pos.Hash
	w.posHistoryLen++
	w.posHistoryBuffer[w.posHistoryLen] = pos.Hash
	w.posHistoryLen++

	if !w.isDraw() {
		t.Fatal("expected isDraw to detect a fourfold repetition")
	}
}

// TestNoStalemateIsLoss checks the defining Shogi/chess divergence: a side
// to move with no legal moves has LOST, never drawn. board.GenerateLegalMoves
// returning an empty list at any search node must be scored as a loss for
// the side to move, which negamax encodes as -MateScore+ply.
func TestNoStalemateIsLoss(t *testing.T) {
	moves := noLegalMovesPosition(t).GenerateLegalMoves()
	if moves.Len() != 0 {
		t.Fatalf("test position is not actually stalemated: %d legal moves", moves.Len())
	}
	// negamax's own handling of this case (return -MateScore+ply, never 0)
	// is exercised end-to-end by the engine-level search tests; this test
	// only pins down that such positions are reachable and detected as
	// having zero legal moves, since Shogi (unlike chess) treats that as
	// scoreable every time, with no separate stalemate rule to special-case.
}

// noLegalMovesPosition returns the classic two-rook corner mate: the white
// king is boxed in by one rook controlling its rank and a second rook
// controlling the rank behind its only escape squares, leaving White with
// no legal response.
func noLegalMovesPosition(t *testing.T) *board.Position {
	t.Helper()
	pos, err := board.ParseSFEN("k4R3/5R3/9/9/9/9/9/9/8K w - 1")
	if err != nil {
		t.Fatalf("failed to parse test position: %v", err)
	}
	return pos
}
