package board

import "testing"

func TestParseSFENStartingPosition(t *testing.T) {
	pos, err := ParseSFEN(StartSFEN)
	if err != nil {
		t.Fatalf("ParseSFEN: %v", err)
	}

	if pos.SideToMove != Black {
		t.Errorf("side to move = %v, want Black", pos.SideToMove)
	}
	if pos.Pieces[Black][King].PopCount() != 1 || pos.Pieces[White][King].PopCount() != 1 {
		t.Error("expected exactly one king per side")
	}
	if pos.Pieces[Black][Pawn].PopCount() != 9 || pos.Pieces[White][Pawn].PopCount() != 9 {
		t.Error("expected nine pawns per side")
	}
	for c := Black; c <= White; c++ {
		for _, pt := range HandPieceOrder {
			if pos.Hands[c][HandIndex(pt)] != 0 {
				t.Errorf("expected empty starting hands, got %d of %v for %v", pos.Hands[c][HandIndex(pt)], pt, c)
			}
		}
	}
}

func TestSFENRoundTrip(t *testing.T) {
	pos, err := ParseSFEN(StartSFEN)
	if err != nil {
		t.Fatalf("ParseSFEN: %v", err)
	}

	got := pos.ToSFEN()
	if got != StartSFEN {
		t.Errorf("round trip mismatch:\n got:  %s\n want: %s", got, StartSFEN)
	}
}

func TestSFENRoundTripAfterMoves(t *testing.T) {
	pos := NewPosition()
	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		t.Fatal("expected legal moves from the starting position")
	}
	undo := pos.MakeMove(moves.Get(0))
	defer pos.UnmakeMove(moves.Get(0), undo)

	sfen := pos.ToSFEN()
	reparsed, err := ParseSFEN(sfen)
	if err != nil {
		t.Fatalf("ParseSFEN(%q): %v", sfen, err)
	}
	if reparsed.Hash != pos.Hash {
		t.Errorf("hash mismatch after round trip: got %016x, want %016x", reparsed.Hash, pos.Hash)
	}
	if reparsed.ToSFEN() != sfen {
		t.Errorf("round trip not idempotent: got %s, want %s", reparsed.ToSFEN(), sfen)
	}
}

func TestParseSFENHands(t *testing.T) {
	pos, err := ParseSFEN("9/9/9/9/4k4/9/9/9/4K4 b 2P3pRb 1")
	if err != nil {
		t.Fatalf("ParseSFEN: %v", err)
	}
	if pos.Hands[Black][HandIndex(Pawn)] != 2 {
		t.Errorf("black pawns in hand = %d, want 2", pos.Hands[Black][HandIndex(Pawn)])
	}
	if pos.Hands[Black][HandIndex(Rook)] != 1 {
		t.Errorf("black rooks in hand = %d, want 1", pos.Hands[Black][HandIndex(Rook)])
	}
	if pos.Hands[White][HandIndex(Pawn)] != 3 {
		t.Errorf("white pawns in hand = %d, want 3", pos.Hands[White][HandIndex(Pawn)])
	}
	if pos.Hands[White][HandIndex(Bishop)] != 1 {
		t.Errorf("white bishops in hand = %d, want 1", pos.Hands[White][HandIndex(Bishop)])
	}
}

func TestParseSFENPromotedPieces(t *testing.T) {
	pos, err := ParseSFEN("4k4/9/9/9/9/9/9/9/4K1+B2 b - 1")
	if err != nil {
		t.Fatalf("ParseSFEN: %v", err)
	}
	piece := pos.PieceAt(NewSquare(8, 6))
	if piece.Type() != Horse || piece.Color() != Black {
		t.Errorf("expected a black horse, got %v", piece)
	}
}
