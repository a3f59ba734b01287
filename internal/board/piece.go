package board

// Color represents the color (camp) of a piece or player. Black (Sente)
// moves first.
type Color uint8

const (
	Black Color = iota
	White
	NoColor Color = 2
)

// Other returns the opposing color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case Black:
		return "Black"
	case White:
		return "White"
	default:
		return "NoColor"
	}
}

// PieceType represents the 14 distinct Shogi piece types: the 8 basic
// types and the 6 types reachable through promotion (Gold and King never
// promote).
type PieceType uint8

const (
	Pawn PieceType = iota
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	Tokin      // promoted Pawn
	PromLance  // promoted Lance
	PromKnight // promoted Knight
	PromSilver // promoted Silver
	Horse      // promoted Bishop
	Dragon     // promoted Rook
	NoPieceType
)

// promotedOf maps a basic piece type to its promoted form, or NoPieceType
// if the type cannot promote.
var promotedOf = [8]PieceType{
	Pawn:   Tokin,
	Lance:  PromLance,
	Knight: PromKnight,
	Silver: PromSilver,
	Gold:   NoPieceType,
	Bishop: Horse,
	Rook:   Dragon,
	King:   NoPieceType,
}

// unpromotedOf maps a promoted piece type back to its basic form. Basic
// types map to themselves.
var unpromotedOf = [14]PieceType{
	Pawn: Pawn, Lance: Lance, Knight: Knight, Silver: Silver,
	Gold: Gold, Bishop: Bishop, Rook: Rook, King: King,
	Tokin: Pawn, PromLance: Lance, PromKnight: Knight, PromSilver: Silver,
	Horse: Bishop, Dragon: Rook,
}

// PromotedOf returns pt's promoted form, and false if pt cannot promote.
func PromotedOf(pt PieceType) (PieceType, bool) {
	if pt >= 8 {
		return NoPieceType, false
	}
	p := promotedOf[pt]
	return p, p != NoPieceType
}

// UnpromotedOf returns pt's base (unpromoted) form.
func UnpromotedOf(pt PieceType) PieceType {
	if pt >= NoPieceType {
		return NoPieceType
	}
	return unpromotedOf[pt]
}

// IsPromoted returns true if pt is one of the six promoted types.
func (pt PieceType) IsPromoted() bool {
	return pt >= Tokin && pt < NoPieceType
}

// CanPromote returns true if pt has a promoted form.
func (pt PieceType) CanPromote() bool {
	_, ok := PromotedOf(pt)
	return ok
}

// IsDroppable returns true if a captured piece of this type (in hand) may
// be dropped back onto the board. Only the seven basic, non-King types are
// droppable; captures always demote to their unpromoted form before
// entering a hand.
func (pt PieceType) IsDroppable() bool {
	return pt < King
}

// usiLetters are the USI piece-type letters, indexed by PieceType, for the
// eight basic types (uppercase convention; lowercase denotes White).
var usiLetters = [8]byte{'P', 'L', 'N', 'S', 'G', 'B', 'R', 'K'}

// String returns a human-readable name for the piece type.
func (pt PieceType) String() string {
	names := [15]string{
		"Pawn", "Lance", "Knight", "Silver", "Gold", "Bishop", "Rook", "King",
		"Tokin", "PromotedLance", "PromotedKnight", "PromotedSilver", "Horse", "Dragon",
		"None",
	}
	if pt > NoPieceType {
		return "None"
	}
	return names[pt]
}

// USIChar returns the USI board-square letter(s) for the piece type,
// without color casing applied (e.g. "P", "+P").
func (pt PieceType) USIChar() string {
	if pt.IsPromoted() {
		return "+" + string(usiLetters[unpromotedOf[pt]])
	}
	if pt >= NoPieceType {
		return ""
	}
	return string(usiLetters[pt])
}

// PieceValue holds the material value of each piece type in centipawn-like
// units, indexed by PieceType. King is given a large but finite value so it
// participates in ordinary static-exchange and material sums without
// special-casing.
var PieceValue = [15]int{
	Pawn: 90, Lance: 315, Knight: 405, Silver: 540, Gold: 630,
	Bishop: 855, Rook: 990, King: 15000,
	Tokin: 540, PromLance: 540, PromKnight: 540, PromSilver: 540,
	Horse: 945, Dragon: 1110,
	NoPieceType: 0,
}

// Piece combines a PieceType and a Color into a single value, encoded as
// pieceType + color*14.
type Piece uint8

// NoPiece marks an empty square.
const NoPiece Piece = 28

// NewPiece creates a Piece from a PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*14
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 14)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / 14)
}

// Promote returns the promoted version of p, and false if p cannot promote.
func (p Piece) Promote() (Piece, bool) {
	pt, ok := PromotedOf(p.Type())
	if !ok {
		return p, false
	}
	return NewPiece(pt, p.Color()), true
}

// Demote returns the unpromoted version of p (p itself if already basic).
func (p Piece) Demote() Piece {
	return NewPiece(UnpromotedOf(p.Type()), p.Color())
}

// String returns the USI piece letter for p, uppercase for Black and
// lowercase for White (e.g. "P", "p", "+R", "+r").
func (p Piece) String() string {
	if p >= NoPiece {
		return " "
	}
	s := p.Type().USIChar()
	if p.Color() == White {
		lower := make([]byte, len(s))
		for i := 0; i < len(s); i++ {
			c := s[i]
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			lower[i] = c
		}
		return string(lower)
	}
	return s
}

// Value returns the material value of the piece.
func (p Piece) Value() int {
	return PieceValue[p.Type()]
}

// HandPieceOrder lists the seven droppable piece types in the conventional
// USI hand-listing order (used when formatting SFEN hand text and when
// iterating over a player's hand; positions in a Hand array come from
// HandIndex, not from this order).
var HandPieceOrder = [7]PieceType{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

// HandIndex returns the index of pt within a Hand array, or -1 if pt is not
// a droppable type.
func HandIndex(pt PieceType) int {
	switch pt {
	case Pawn:
		return 0
	case Lance:
		return 1
	case Knight:
		return 2
	case Silver:
		return 3
	case Gold:
		return 4
	case Bishop:
		return 5
	case Rook:
		return 6
	default:
		return -1
	}
}
