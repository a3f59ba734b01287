package engine

import (
	"testing"

	"github.com/hailam/chessplay-shogi/internal/board"
)

// TestSEEUndefendedCapture sets up a lone black pawn capturing a lone,
// undefended white pawn directly in front of it: the exchange should value
// at exactly one pawn, since nothing can recapture.
func TestSEEUndefendedCapture(t *testing.T) {
	pos, err := board.ParseSFEN("4k4/9/9/4p4/4P4/9/9/9/4K4 b - 1")
	if err != nil {
		t.Fatalf("failed to parse test position: %v", err)
	}

	from := board.NewSquare(4, 4) // black pawn
	to := board.NewSquare(3, 4)   // white pawn directly ahead

	m := board.NewMove(from, to, board.Pawn, board.Pawn, false)

	got := SEE(pos, m)
	want := board.PieceValue[board.Pawn]
	if got != want {
		t.Errorf("expected SEE=%d for an undefended pawn capture, got %d", want, got)
	}
}

func TestSEENonCaptureIsZero(t *testing.T) {
	pos := board.NewPosition()
	m := board.NewMove(board.NewSquare(6, 4), board.NewSquare(5, 4), board.Pawn, board.NoPieceType, false)

	if got := SEE(pos, m); got != 0 {
		t.Errorf("expected SEE=0 for a non-capturing move, got %d", got)
	}
}
