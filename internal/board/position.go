package board

import "fmt"

// Position represents a complete Shogi position: the board, both hands,
// and the bookkeeping (hashes, cached occupancy, king squares) needed by
// search and move generation.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][14]Bitboard

	// Occupancy bitboards (cached for efficiency)
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	// Hands: captured pieces available to drop, indexed via HandIndex.
	Hands [2][7]int

	SideToMove Color
	MoveNumber int // ply counter, starts at 1

	// Zobrist hash for transposition table lookups.
	Hash uint64

	// Pawn/phase structure hash, used by the pawn-structure cache.
	PawnKey uint64

	// King positions (cached for check detection).
	KingSquare [2]Square

	// Checkers bitboard (pieces currently giving check to the side to move).
	Checkers Bitboard
}

// NewPosition creates the Shogi starting position.
func NewPosition() *Position {
	pos, _ := ParseSFEN(StartSFEN)
	return pos
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// PieceAt returns the piece at sq, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if !p.AllOccupied.And(bb).More() {
		return NoPiece
	}
	var c Color
	if p.Occupied[Black].And(bb).More() {
		c = Black
	} else {
		c = White
	}
	for pt := Pawn; pt < NoPieceType; pt++ {
		if p.Pieces[c][pt].And(bb).More() {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// IsEmpty returns true if sq holds no piece.
func (p *Position) IsEmpty(sq Square) bool {
	return !p.AllOccupied.IsSet(sq)
}

func (p *Position) setPiece(piece Piece, sq Square) {
	if piece == NoPiece {
		return
	}
	c := piece.Color()
	pt := piece.Type()
	p.Pieces[c][pt] = p.Pieces[c][pt].Set(sq)
	p.Occupied[c] = p.Occupied[c].Set(sq)
	p.AllOccupied = p.AllOccupied.Set(sq)
	if pt == King {
		p.KingSquare[c] = sq
	}
}

func (p *Position) removePiece(sq Square) Piece {
	piece := p.PieceAt(sq)
	if piece == NoPiece {
		return NoPiece
	}
	c := piece.Color()
	pt := piece.Type()
	p.Pieces[c][pt] = p.Pieces[c][pt].Clear(sq)
	p.Occupied[c] = p.Occupied[c].Clear(sq)
	p.AllOccupied = p.AllOccupied.Clear(sq)
	return piece
}

func (p *Position) movePiece(from, to Square) {
	piece := p.PieceAt(from)
	if piece == NoPiece {
		return
	}
	c := piece.Color()
	pt := piece.Type()
	p.Pieces[c][pt] = p.Pieces[c][pt].Clear(from).Set(to)
	p.Occupied[c] = p.Occupied[c].Clear(from).Set(to)
	p.AllOccupied = p.AllOccupied.Clear(from).Set(to)
	if pt == King {
		p.KingSquare[c] = to
	}
}

func (p *Position) updateOccupied() {
	p.Occupied[Black] = Empty
	p.Occupied[White] = Empty
	for pt := Pawn; pt < NoPieceType; pt++ {
		p.Occupied[Black] = p.Occupied[Black].Or(p.Pieces[Black][pt])
		p.Occupied[White] = p.Occupied[White].Or(p.Pieces[White][pt])
	}
	p.AllOccupied = p.Occupied[Black].Or(p.Occupied[White])
}

func (p *Position) findKings() {
	p.KingSquare[Black] = p.Pieces[Black][King].LSB()
	p.KingSquare[White] = p.Pieces[White][King].LSB()
}

// String returns a visual board dump plus side/hands/hash summary.
func (p *Position) String() string {
	s := "\n"
	for row := 0; row <= 8; row++ {
		s += fmt.Sprintf("%c ", 'a'+row)
		for col := 0; col <= 8; col++ {
			piece := p.PieceAt(NewSquare(row, col))
			if piece == NoPiece {
				s += " . "
			} else {
				s += fmt.Sprintf("%2s ", piece.String())
			}
		}
		s += "\n"
	}
	s += "   9  8  7  6  5  4  3  2  1\n\n"
	s += fmt.Sprintf("Side to move: %s\n", p.SideToMove)
	s += fmt.Sprintf("Black hand: %s\n", handString(p.Hands[Black]))
	s += fmt.Sprintf("White hand: %s\n", handString(p.Hands[White]))
	s += fmt.Sprintf("Hash: %016x\n", p.Hash)
	return s
}

func handString(hand [7]int) string {
	s := ""
	for _, pt := range HandPieceOrder {
		n := hand[HandIndex(pt)]
		if n > 0 {
			s += fmt.Sprintf("%d%s ", n, pt.USIChar())
		}
	}
	if s == "" {
		return "-"
	}
	return s
}

// Clear resets the position to an empty board with no pieces in hand.
func (p *Position) Clear() {
	*p = Position{MoveNumber: 1}
	p.KingSquare[Black] = NoSquare
	p.KingSquare[White] = NoSquare
}

// Validate checks basic structural invariants of the position.
func (p *Position) Validate() error {
	if p.Pieces[Black][King].PopCount() != 1 {
		return fmt.Errorf("black must have exactly one king")
	}
	if p.Pieces[White][King].PopCount() != 1 {
		return fmt.Errorf("white must have exactly one king")
	}
	lastRankBlack := RankMaskOf(0)
	lastRankWhite := RankMaskOf(8)
	if p.Pieces[Black][Pawn].And(lastRankBlack).More() || p.Pieces[White][Pawn].And(lastRankWhite).More() {
		return fmt.Errorf("unpromoted pawn cannot sit on the farthest rank")
	}
	return nil
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers.More()
}

// Material returns the board material balance (positive favors Black),
// not counting pieces held in hand.
func (p *Position) Material() int {
	score := 0
	for pt := Pawn; pt < NoPieceType; pt++ {
		score += p.Pieces[Black][pt].PopCount() * PieceValue[pt]
		score -= p.Pieces[White][pt].PopCount() * PieceValue[pt]
	}
	return score
}

// ComputePinned computes the pieces of the side to move that are pinned
// against their own king.
func (p *Position) ComputePinned() Bitboard {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	var pinned Bitboard

	orthoSnipers := RookAttacks(ksq, Empty).And(p.Pieces[them][Rook].Or(p.Pieces[them][Dragon]))
	for orthoSnipers.More() {
		sq := orthoSnipers.PopLSB()
		blockers := Between(sq, ksq).And(p.AllOccupied)
		if blockers.PopCount() == 1 && blockers.And(p.Occupied[us]).More() {
			pinned = pinned.Or(blockers)
		}
	}

	diagSnipers := BishopAttacks(ksq, Empty).And(p.Pieces[them][Bishop].Or(p.Pieces[them][Horse]))
	for diagSnipers.More() {
		sq := diagSnipers.PopLSB()
		blockers := Between(sq, ksq).And(p.AllOccupied)
		if blockers.PopCount() == 1 && blockers.And(p.Occupied[us]).More() {
			pinned = pinned.Or(blockers)
		}
	}

	lanceSnipers := RookAttacks(ksq, Empty).And(p.Pieces[them][Lance])
	for lanceSnipers.More() {
		sq := lanceSnipers.PopLSB()
		if sq.Col() != ksq.Col() {
			continue
		}
		dr := lanceDir(them)
		if dr > 0 && ksq.Row() <= sq.Row() {
			continue
		}
		if dr < 0 && ksq.Row() >= sq.Row() {
			continue
		}
		blockers := Between(sq, ksq).And(p.AllOccupied)
		if blockers.PopCount() == 1 && blockers.And(p.Occupied[us]).More() {
			pinned = pinned.Or(blockers)
		}
	}

	return pinned
}

// NullMoveUndo stores the state needed to unmake a null move.
type NullMoveUndo struct {
	Hash uint64
}

// MakeNullMove passes the turn without moving, for null-move pruning.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{Hash: p.Hash}
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
	p.UpdateCheckers()
	return undo
}

// UnmakeNullMove undoes a null move.
func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.Hash = undo.Hash
	p.SideToMove = p.SideToMove.Other()
	p.UpdateCheckers()
}

// HasNonPawnMaterial returns true if the side to move controls any
// non-pawn, non-king piece on the board. Used to avoid null-move pruning
// in bare-pawn endgames prone to zugzwang.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.SideToMove
	var bb Bitboard
	for pt := Lance; pt < NoPieceType; pt++ {
		if pt == King {
			continue
		}
		bb = bb.Or(p.Pieces[us][pt])
	}
	return bb.More()
}

// HandCount returns how many of pt the given color currently holds.
func (p *Position) HandCount(c Color, pt PieceType) int {
	idx := HandIndex(pt)
	if idx < 0 {
		return 0
	}
	return p.Hands[c][idx]
}

func (p *Position) addToHand(c Color, pt PieceType) {
	idx := HandIndex(pt)
	if idx < 0 {
		return
	}
	n := p.Hands[c][idx]
	p.Hash ^= ZobristHand(c, pt, n)
	p.Hands[c][idx] = n + 1
	p.Hash ^= ZobristHand(c, pt, n+1)
}

func (p *Position) removeFromHand(c Color, pt PieceType) {
	idx := HandIndex(pt)
	if idx < 0 {
		return
	}
	n := p.Hands[c][idx]
	p.Hash ^= ZobristHand(c, pt, n)
	p.Hands[c][idx] = n - 1
	p.Hash ^= ZobristHand(c, pt, n-1)
}
