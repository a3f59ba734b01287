package board

// Sliding-piece attack generation for Bishop, Rook, and Lance.
//
// A classical magic bitboard indexes a per-square attack table with
// (occupancy & mask) * magicNumber >> shift, which only works because a
// chess board's occupancy fits in one 64-bit word the multiply can act on.
// Shogi's 81 squares need two words, and there is no portable 128-bit
// multiply to replace the single-word trick. Instead, each slider's
// attack table is indexed directly: the masked occupancy bits are
// extracted one by one, in the same fixed order used to build the table,
// into a dense integer key (the same bit-extraction indexToOccupancy
// already uses to invert index->occupancy, run here in the occupancy->index
// direction). This costs a small loop over the mask's set bits instead of
// one multiply, but needs no magic numbers and is exact by construction.

// slider holds the per-square attack-table metadata for one sliding piece.
type slider struct {
	Mask   Bitboard
	Offset uint32
	Bits   int
}

var (
	bishopSliders [81]slider
	rookSliders   [81]slider
	lanceSliders  [2][81]slider // [Color][Square]

	bishopTable []Bitboard
	rookTable   []Bitboard
	lanceTable  [2][]Bitboard
)

func initMagics() {
	initBishopSliders()
	initRookSliders()
	initLanceSliders()
}

// edgeMaskFor returns the edge squares excluded from the relevant-occupancy
// mask of a slider on sq. A blocker on an edge that a ray runs into never
// changes the attack set (the ray terminates there regardless). The edge
// rank and edge file that sq itself lies on are kept, because a ray that
// runs along that edge passes through its squares.
func edgeMaskFor(sq Square) Bitboard {
	ranks := RankMaskOf(0).Or(RankMaskOf(8)).AndNot(RankMaskOf(sq.Row()))
	files := FileMaskOf(0).Or(FileMaskOf(8)).AndNot(FileMaskOf(sq.Col()))
	return ranks.Or(files)
}

func initBishopSliders() {
	var offset uint32
	for sq := 0; sq < 81; sq++ {
		mask := bishopAttacksSlow(Square(sq), Empty).AndNot(edgeMaskFor(Square(sq)))
		bits := mask.PopCount()
		bishopSliders[sq] = slider{Mask: mask, Offset: offset, Bits: bits}

		n := 1 << uint(bits)
		for i := 0; i < n; i++ {
			occ := indexToOccupancy(i, mask)
			bishopTable = append(bishopTable, bishopAttacksSlow(Square(sq), occ))
		}
		offset += uint32(n)
	}
}

func initRookSliders() {
	var offset uint32
	for sq := 0; sq < 81; sq++ {
		mask := rookAttacksSlow(Square(sq), Empty).AndNot(edgeMaskFor(Square(sq)))
		bits := mask.PopCount()
		rookSliders[sq] = slider{Mask: mask, Offset: offset, Bits: bits}

		n := 1 << uint(bits)
		for i := 0; i < n; i++ {
			occ := indexToOccupancy(i, mask)
			rookTable = append(rookTable, rookAttacksSlow(Square(sq), occ))
		}
		offset += uint32(n)
	}
}

func initLanceSliders() {
	for _, c := range [2]Color{Black, White} {
		var offset uint32
		for sq := 0; sq < 81; sq++ {
			mask := lanceAttacksSlow(Square(sq), Empty, c).AndNot(edgeMaskFor(Square(sq)))
			bits := mask.PopCount()
			lanceSliders[c][sq] = slider{Mask: mask, Offset: offset, Bits: bits}

			n := 1 << uint(bits)
			for i := 0; i < n; i++ {
				occ := indexToOccupancy(i, mask)
				lanceTable[c] = append(lanceTable[c], lanceAttacksSlow(Square(sq), occ, c))
			}
			offset += uint32(n)
		}
	}
}

// indexToOccupancy converts a dense index back into an occupancy bitboard
// restricted to mask, consuming mask bits from least significant to most.
func indexToOccupancy(index int, mask Bitboard) Bitboard {
	var occ Bitboard
	bit := 0
	for mask.More() {
		sq := mask.PopLSB()
		if index&(1<<uint(bit)) != 0 {
			occ = occ.Set(sq)
		}
		bit++
	}
	return occ
}

// extractIndex converts occ, restricted to mask, into the dense index used
// to address the attack table (the inverse of indexToOccupancy).
func extractIndex(occ, mask Bitboard) int {
	idx := 0
	bit := 0
	for mask.More() {
		sq := mask.PopLSB()
		if occ.IsSet(sq) {
			idx |= 1 << uint(bit)
		}
		bit++
	}
	return idx
}

func bishopAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	var attacks Bitboard
	for _, d := range [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}} {
		r, c := sq.Row()+d[0], sq.Col()+d[1]
		for r >= 0 && r <= 8 && c >= 0 && c <= 8 {
			s := NewSquare(r, c)
			attacks = attacks.Set(s)
			if occupied.IsSet(s) {
				break
			}
			r += d[0]
			c += d[1]
		}
	}
	return attacks
}

func rookAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	var attacks Bitboard
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		r, c := sq.Row()+d[0], sq.Col()+d[1]
		for r >= 0 && r <= 8 && c >= 0 && c <= 8 {
			s := NewSquare(r, c)
			attacks = attacks.Set(s)
			if occupied.IsSet(s) {
				break
			}
			r += d[0]
			c += d[1]
		}
	}
	return attacks
}

// lanceDir returns the forward row delta for c: Black advances toward row
// 0, White toward row 8.
func lanceDir(c Color) int {
	if c == Black {
		return -1
	}
	return 1
}

func lanceAttacksSlow(sq Square, occupied Bitboard, c Color) Bitboard {
	var attacks Bitboard
	dr := lanceDir(c)
	for r := sq.Row() + dr; r >= 0 && r <= 8; r += dr {
		s := NewSquare(r, sq.Col())
		attacks = attacks.Set(s)
		if occupied.IsSet(s) {
			break
		}
	}
	return attacks
}

func getBishopAttacks(sq Square, occupied Bitboard) Bitboard {
	s := &bishopSliders[sq]
	idx := extractIndex(occupied, s.Mask)
	return bishopTable[int(s.Offset)+idx]
}

func getRookAttacks(sq Square, occupied Bitboard) Bitboard {
	s := &rookSliders[sq]
	idx := extractIndex(occupied, s.Mask)
	return rookTable[int(s.Offset)+idx]
}

func getLanceAttacks(sq Square, occupied Bitboard, c Color) Bitboard {
	s := &lanceSliders[c][sq]
	idx := extractIndex(occupied, s.Mask)
	return lanceTable[c][int(s.Offset)+idx]
}
