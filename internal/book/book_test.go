package book

import (
	"os"
	"testing"

	"github.com/hailam/chessplay-shogi/internal/board"
)

func TestPackUnpackMove(t *testing.T) {
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		t.Fatal("expected legal moves from the starting position")
	}

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		packed, ok := packMove(m)
		if !ok {
			t.Fatalf("packMove rejected a legal move: %s", m.String())
		}
		got, ok := unpackMove(packed)
		if !ok {
			t.Fatalf("unpackMove rejected its own packed move: %s", m.String())
		}
		if got != m {
			t.Errorf("round-trip mismatch: got %s, want %s", got.String(), m.String())
		}
	}
}

func TestBookAddProbeAndSave(t *testing.T) {
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()
	move := moves.Get(0)

	b := New()
	b.AddEntry(pos.Hash, move, 100)

	if b.Size() != 1 {
		t.Fatalf("expected book size 1, got %d", b.Size())
	}

	got, found := b.Probe(pos)
	if !found {
		t.Fatal("expected to find the recorded move in the book")
	}
	if got != move {
		t.Errorf("expected %s, got %s", move.String(), got.String())
	}

	tmpFile, err := os.CreateTemp("", "book-*.bin")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	if err := b.Save(tmpFile.Name()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Size() != 1 {
		t.Fatalf("expected loaded book size 1, got %d", loaded.Size())
	}

	got, found = loaded.Probe(pos)
	if !found || got != move {
		t.Errorf("loaded book probe mismatch: found=%v move=%s", found, got.String())
	}
}

func TestBookMiss(t *testing.T) {
	book := New()
	pos := board.NewPosition()

	move, found := book.Probe(pos)
	if found {
		t.Error("expected a book miss on an empty book")
	}
	if move != board.NoMove {
		t.Errorf("expected NoMove on miss, got %s", move.String())
	}
}

func TestAddEntryAccumulatesWeight(t *testing.T) {
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()
	move := moves.Get(0)

	b := New()
	b.AddEntry(pos.Hash, move, 10)
	b.AddEntry(pos.Hash, move, 15)

	entries := b.ProbeAll(pos)
	if len(entries) != 1 {
		t.Fatalf("expected one merged entry, got %d", len(entries))
	}
	if entries[0].Weight != 25 {
		t.Errorf("expected accumulated weight 25, got %d", entries[0].Weight)
	}
}
