package board

// GenerateLegalMoves returns every legal move (board moves and drops) for
// the side to move.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalMoves returns every pseudo-legal move, which may leave
// the mover's own king in check.
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return ml
}

// GenerateCaptures returns the legal "noisy" moves used by quiescence
// search: captures and promotions.
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	p.generateNoisyMoves(ml)
	return p.filterLegalMoves(ml)
}

func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	p.generateBoardMoves(ml, us, false)
	p.generateDropMoves(ml, us)
}

func (p *Position) generateNoisyMoves(ml *MoveList) {
	us := p.SideToMove
	p.generateBoardMoves(ml, us, true)
}

// generateBoardMoves walks every piece type's attack set. When
// noisyOnly is true, only captures and promotions are emitted (used by
// quiescence search).
func (p *Position) generateBoardMoves(ml *MoveList, us Color, noisyOnly bool) {
	occupied := p.AllOccupied
	own := p.Occupied[us]

	for pt := Pawn; pt < NoPieceType; pt++ {
		bb := p.Pieces[us][pt]
		for bb.More() {
			from := bb.PopLSB()
			attacks := PieceAttacks(pt, us, from, occupied).AndNot(own)
			for attacks.More() {
				to := attacks.PopLSB()
				captured := NoPieceType
				if cap := p.PieceAt(to); cap != NoPiece {
					captured = UnpromotedOf(cap.Type())
				}
				if pt == King {
					if noisyOnly && captured == NoPieceType {
						continue
					}
					ml.Add(NewMove(from, to, King, captured, false))
					continue
				}
				p.addBoardMove(ml, from, to, pt, us, captured, noisyOnly)
			}
		}
	}
}

func mustPromote(pt PieceType, to Square, c Color) bool {
	rel := to.RelativeRow(c)
	switch pt {
	case Pawn, Lance:
		return rel == 0
	case Knight:
		return rel <= 1
	default:
		return false
	}
}

func canPromoteMove(pt PieceType, from, to Square, c Color) bool {
	if !pt.CanPromote() {
		return false
	}
	return from.InPromotionZone(c) || to.InPromotionZone(c)
}

func (p *Position) addBoardMove(ml *MoveList, from, to Square, pt PieceType, us Color, captured PieceType, noisyOnly bool) {
	if !canPromoteMove(pt, from, to, us) {
		if noisyOnly && captured == NoPieceType {
			return
		}
		ml.Add(NewMove(from, to, pt, captured, false))
		return
	}

	if !mustPromote(pt, to, us) {
		if !(noisyOnly && captured == NoPieceType) {
			ml.Add(NewMove(from, to, pt, captured, false))
		}
	}
	// Promoting is always noisy enough to include in quiescence, since it
	// changes material value even without a capture.
	ml.Add(NewMove(from, to, pt, captured, true))
}

// farRankMask returns the squares within the n ranks closest to c's
// promotion zone (rel row < n).
func farRankMask(c Color, n int) Bitboard {
	var bb Bitboard
	for sq := 0; sq < 81; sq++ {
		s := Square(sq)
		if s.RelativeRow(c) < n {
			bb = bb.Set(s)
		}
	}
	return bb
}

func pawnFileBlockMask(p *Position, us Color) Bitboard {
	var bb Bitboard
	pawns := p.Pieces[us][Pawn]
	for pawns.More() {
		sq := pawns.PopLSB()
		bb = bb.Or(FileMaskOf(sq.Col()))
	}
	return bb
}

func (p *Position) generateDropMoves(ml *MoveList, us Color) {
	empty := p.AllOccupied.Not()

	for _, pt := range HandPieceOrder {
		idx := HandIndex(pt)
		if p.Hands[us][idx] <= 0 {
			continue
		}

		targets := empty
		switch pt {
		case Pawn, Lance:
			targets = targets.AndNot(farRankMask(us, 1))
		case Knight:
			targets = targets.AndNot(farRankMask(us, 2))
		}
		if pt == Pawn {
			targets = targets.AndNot(pawnFileBlockMask(p, us))
		}

		t := targets
		for t.More() {
			to := t.PopLSB()
			if pt == Pawn && p.isPawnDropCheckmate(to, us) {
				continue
			}
			ml.Add(NewDrop(to, pt))
		}
	}
}

// isPawnDropCheckmate reports whether dropping a pawn for us at `to` would
// deliver an immediate checkmate (uchifuzume), which USI rules forbid.
func (p *Position) isPawnDropCheckmate(to Square, us Color) bool {
	them := us.Other()
	kingSq := p.KingSquare[them]
	if !PawnAttacks(to, us).IsSet(kingSq) {
		return false
	}
	mv := NewDrop(to, Pawn)
	undo := p.MakeMove(mv)
	mate := p.InCheck() && !p.HasLegalMoves()
	p.UnmakeMove(mv, undo)
	return mate
}

func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := NewMoveList()
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if p.IsLegal(m) {
			result.Add(m)
		}
	}
	return result
}

// IsLegal returns true if m does not leave the mover's own king in check.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	if !m.Drop && m.From == ksq {
		occ := p.AllOccupied.Clear(m.From)
		return !p.AttackersByColor(m.To, them, occ).More()
	}

	undo := p.MakeMove(m)
	if !undo.Valid {
		return false
	}
	attacked := p.IsSquareAttacked(ksq, them)
	p.UnmakeMove(m, undo)
	return !attacked
}

// MakeMove applies m to the position and returns the information needed to
// unmake it.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		Hash:        p.Hash,
		PawnKey:     p.PawnKey,
		Checkers:    p.Checkers,
		Pieces:      p.Pieces,
		Occupied:    p.Occupied,
		AllOccupied: p.AllOccupied,
		Hands:       p.Hands,
		KingSquare:  p.KingSquare,
	}

	us := p.SideToMove
	them := us.Other()

	if m.Drop {
		if p.HandCount(us, m.Piece) <= 0 || !p.IsEmpty(m.To) {
			return undo
		}
		undo.Valid = true
		p.removeFromHand(us, m.Piece)
		p.setPiece(NewPiece(m.Piece, us), m.To)
		p.Hash ^= ZobristPiece(us, m.Piece, m.To)
		if m.Piece == Pawn {
			p.PawnKey ^= ZobristPiece(us, Pawn, m.To)
		}
	} else {
		piece := p.PieceAt(m.From)
		if piece == NoPiece || piece.Color() != us || piece.Type() != m.Piece {
			return undo
		}
		undo.Valid = true

		if cap := p.PieceAt(m.To); cap != NoPiece {
			capType := UnpromotedOf(cap.Type())
			undo.CapturedType = capType
			p.removePiece(m.To)
			p.Hash ^= ZobristPiece(them, cap.Type(), m.To)
			if cap.Type() == Pawn {
				p.PawnKey ^= ZobristPiece(them, Pawn, m.To)
			}
			p.addToHand(us, capType)
		}

		p.movePiece(m.From, m.To)
		finalType := m.Piece
		if m.Promote {
			if promoted, ok := PromotedOf(m.Piece); ok {
				p.Pieces[us][m.Piece] = p.Pieces[us][m.Piece].Clear(m.To)
				p.Pieces[us][promoted] = p.Pieces[us][promoted].Set(m.To)
				finalType = promoted
			}
		}
		p.Hash ^= ZobristPiece(us, m.Piece, m.From)
		p.Hash ^= ZobristPiece(us, finalType, m.To)
		if m.Piece == Pawn {
			p.PawnKey ^= ZobristPiece(us, Pawn, m.From)
			if finalType == Pawn {
				p.PawnKey ^= ZobristPiece(us, Pawn, m.To)
			}
		}
	}

	p.Hash ^= zobristSideToMove
	p.SideToMove = them
	p.MoveNumber++
	p.UpdateCheckers()
	return undo
}

// UnmakeMove restores the position to the state it held before m was made.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	if !undo.Valid {
		return
	}
	p.Pieces = undo.Pieces
	p.Occupied = undo.Occupied
	p.AllOccupied = undo.AllOccupied
	p.Hands = undo.Hands
	p.KingSquare = undo.KingSquare
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.Checkers = undo.Checkers
	p.SideToMove = p.SideToMove.Other()
	p.MoveNumber--
}

// HasLegalMoves returns true if the side to move has at least one legal
// move.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	for i := 0; i < ml.Len(); i++ {
		if p.IsLegal(ml.Get(i)) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the side to move is in check with no legal
// response.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsTerminal returns true if the side to move has no legal moves at all.
// Shogi has no stalemate draw: a side with no legal moves loses, whether
// or not it is currently in check (a position the uchifuzume and nifu
// restrictions make exceedingly rare outside of checkmate itself).
func (p *Position) IsTerminal() bool {
	return !p.HasLegalMoves()
}
