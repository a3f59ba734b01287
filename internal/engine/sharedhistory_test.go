package engine

import (
	"testing"

	"github.com/hailam/chessplay-shogi/internal/board"
)

func TestSharedHistoryUpdateAndGet(t *testing.T) {
	sh := NewSharedHistory()

	if got := sh.Get(int(board.Pawn), 10); got != 0 {
		t.Fatalf("expected zero score for an untouched entry, got %d", got)
	}

	sh.Update(int(board.Pawn), 10, 50)
	sh.Update(int(board.Pawn), 10, 30)

	if got := sh.Get(int(board.Pawn), 10); got <= 0 {
		t.Fatalf("expected a positive accumulated score, got %d", got)
	}
}

func TestSharedHistoryClearAges(t *testing.T) {
	sh := NewSharedHistory()
	sh.Update(int(board.Pawn), 5, 100)

	before := sh.Get(int(board.Pawn), 5)
	sh.Clear()
	after := sh.Get(int(board.Pawn), 5)

	if after == 0 || after >= before {
		t.Fatalf("expected Clear to halve (not zero) the entry: before=%d after=%d", before, after)
	}
}
