package board

// VBoard is a lightweight board for move simulation: search nodes that
// only need to know what attacks what, not the full Position bookkeeping
// (hashes, move counters). Stack-allocated, no GC pressure.
type VBoard struct {
	Pieces      [2][14]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard
	Hands       [2][7]int
	KingSquare  [2]Square
}

// NewVBoard creates a VBoard from a Position.
func NewVBoard(p *Position) VBoard {
	return VBoard{
		Pieces:      p.Pieces,
		Occupied:    p.Occupied,
		AllOccupied: p.AllOccupied,
		Hands:       p.Hands,
		KingSquare:  p.KingSquare,
	}
}

// ApplyMove applies a move to the VBoard (no validation, no hash update).
func (v *VBoard) ApplyMove(m Move, us Color) {
	them := us.Other()
	toBB := SquareBB(m.To)

	if m.Drop {
		idx := HandIndex(m.Piece)
		if idx >= 0 {
			v.Hands[us][idx]--
		}
		v.Pieces[us][m.Piece] = v.Pieces[us][m.Piece].Set(m.To)
		v.Occupied[us] = v.Occupied[us].Set(m.To)
		v.AllOccupied = v.AllOccupied.Set(m.To)
		return
	}

	fromBB := SquareBB(m.From)

	if v.AllOccupied.And(toBB).More() {
		for t := Pawn; t < NoPieceType; t++ {
			if v.Pieces[them][t].And(toBB).More() {
				v.Pieces[them][t] = v.Pieces[them][t].AndNot(toBB)
				v.Occupied[them] = v.Occupied[them].AndNot(toBB)
				break
			}
		}
	}

	pt := m.Piece
	v.Pieces[us][pt] = v.Pieces[us][pt].AndNot(fromBB)
	finalType := pt
	if m.Promote {
		if promoted, ok := PromotedOf(pt); ok {
			finalType = promoted
		}
	}
	v.Pieces[us][finalType] = v.Pieces[us][finalType].Or(toBB)

	v.Occupied[us] = v.Occupied[us].AndNot(fromBB).Or(toBB)
	v.AllOccupied = v.Occupied[Black].Or(v.Occupied[White])

	if pt == King {
		v.KingSquare[us] = m.To
	}
}

// IsKingAttacked checks if the king on kingSq is attacked by byColor.
func (v *VBoard) IsKingAttacked(kingSq Square, byColor Color) bool {
	them := byColor

	if PawnAttacks(kingSq, them.Other()).And(v.Pieces[them][Pawn]).More() {
		return true
	}
	if KnightAttacks(kingSq, them.Other()).And(v.Pieces[them][Knight]).More() {
		return true
	}
	if SilverAttacks(kingSq, them.Other()).And(v.Pieces[them][Silver]).More() {
		return true
	}
	goldLike := v.Pieces[them][Gold].Or(v.Pieces[them][Tokin]).Or(v.Pieces[them][PromLance]).
		Or(v.Pieces[them][PromKnight]).Or(v.Pieces[them][PromSilver])
	if GoldAttacks(kingSq, them.Other()).And(goldLike).More() {
		return true
	}
	if KingAttacks(kingSq).And(v.Pieces[them][King]).More() {
		return true
	}
	if LanceAttacks(kingSq, v.AllOccupied, them.Other()).And(v.Pieces[them][Lance]).More() {
		return true
	}
	if BishopAttacks(kingSq, v.AllOccupied).And(v.Pieces[them][Bishop]).More() {
		return true
	}
	if RookAttacks(kingSq, v.AllOccupied).And(v.Pieces[them][Rook]).More() {
		return true
	}
	if HorseAttacks(kingSq, v.AllOccupied).And(v.Pieces[them][Horse]).More() {
		return true
	}
	if DragonAttacks(kingSq, v.AllOccupied).And(v.Pieces[them][Dragon]).More() {
		return true
	}
	return false
}
