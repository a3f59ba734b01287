package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hailam/chessplay-shogi/internal/board"
)

func TestMultiPV(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, nil)

	limits := SearchLimits{
		Depth:    4,
		MoveTime: 2 * time.Second,
		MultiPV:  3,
	}

	results := eng.SearchMultiPV(context.Background(), pos, limits)

	if len(results) < 2 {
		t.Fatalf("expected at least 2 PVs, got %d", len(results))
	}

	if results[0].Move == results[1].Move {
		t.Errorf("first two PVs have the same move: %s", results[0].Move.String())
	}

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("PV %d has a higher score than PV %d (%d > %d)",
				i+1, i, results[i].Score, results[i-1].Score)
		}
	}

	for i, r := range results {
		t.Logf("PV %d: %s (score: %d, depth: %d)", i+1, r.Move.String(), r.Score, r.Depth)
	}
}

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, nil)

	limits := USILimits{MoveTime: 500 * time.Millisecond, Depth: 6}
	move := eng.SearchWithUSILimits(context.Background(), pos, limits, 1)
	if move == board.NoMove {
		t.Error("search returned NoMove for the starting position")
	}
	t.Logf("best move: %s", move.String())
}

// TestConcurrentSearchRace stress-tests the Lazy-SMP worker pool for races.
// Run with: go test -race -run TestConcurrentSearchRace ./internal/engine -v
func TestConcurrentSearchRace(t *testing.T) {
	eng := NewEngine(16, nil)

	iterations := 10
	if testing.Short() {
		iterations = 3
	}

	positions := []string{
		board.StartSFEN,
		"lnsgkgsnl/1r5b1/pppp1pppp/9/4p4/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 2",
	}

	for i := 0; i < iterations; i++ {
		pos, err := board.ParseSFEN(positions[i%len(positions)])
		if err != nil {
			t.Fatalf("iteration %d: failed to parse position: %v", i, err)
		}

		limits := USILimits{MoveTime: 400 * time.Millisecond, Depth: 6}
		move := eng.SearchWithUSILimits(context.Background(), pos, limits, 1)
		if move == board.NoMove {
			t.Errorf("iteration %d: search returned NoMove for a non-terminal position", i)
		}
	}

	t.Logf("completed %d concurrent search iterations without a race", iterations)
}

// TestConcurrentSearchMultiplePositions searches several distinct positions
// in sequence against the same engine and worker pool.
func TestConcurrentSearchMultiplePositions(t *testing.T) {
	eng := NewEngine(16, nil)

	sfens := []string{
		board.StartSFEN,
		"lnsgkgsnl/1r5b1/pppp1pppp/9/4p4/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 2",
		"4k4/9/4P4/9/9/9/9/9/4K4 b - 1",
	}

	for i, sfen := range sfens {
		pos, err := board.ParseSFEN(sfen)
		if err != nil {
			t.Fatalf("failed to parse position %d: %v", i, err)
		}

		limits := USILimits{MoveTime: 300 * time.Millisecond, Depth: 5}
		move := eng.SearchWithUSILimits(context.Background(), pos, limits, 1)
		if move == board.NoMove {
			if pos.GenerateLegalMoves().Len() > 0 {
				t.Errorf("position %d: search returned NoMove despite legal moves", i)
			}
		} else {
			t.Logf("position %d: best move = %s", i, move.String())
		}
	}
}

func TestPawnHashTable(t *testing.T) {
	pt := NewPawnTable(1)
	pos := board.NewPosition()

	if _, _, found := pt.Probe(pos.PawnKey); found {
		t.Error("expected a cache miss on first probe")
	}

	pt.Store(pos.PawnKey, -15, -20)

	mg, eg, found := pt.Probe(pos.PawnKey)
	if !found {
		t.Error("expected a cache hit after store")
	}
	if mg != -15 || eg != -20 {
		t.Errorf("wrong values: got mg=%d, eg=%d, want -15, -20", mg, eg)
	}

	oldKey := pos.PawnKey
	moves := pos.GenerateLegalMoves()
	var pawnMove board.Move
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.Piece == board.Pawn {
			pawnMove = m
			break
		}
	}
	if pawnMove == board.NoMove {
		t.Fatal("expected a legal pawn move from the starting position")
	}

	undo := pos.MakeMove(pawnMove)
	if pos.PawnKey == oldKey {
		t.Error("PawnKey should change when a pawn moves")
	}

	pos.UnmakeMove(pawnMove, undo)
	if pos.PawnKey != oldKey {
		t.Error("PawnKey should be restored on unmake")
	}

	t.Logf("PawnKey: %016x", pos.PawnKey)
}
