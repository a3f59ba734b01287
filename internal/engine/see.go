package engine

import "github.com/hailam/chessplay-shogi/internal/board"

// SEE estimates the net material gain of a capture by simulating the full
// exchange sequence on the destination square, alternating sides and
// always recapturing with the least valuable attacker first.
func SEE(pos *board.Position, m board.Move) int {
	if !m.IsCapture() {
		return 0
	}

	to := m.To
	capturedValue := board.PieceValue[m.Captured]
	if m.Promote {
		if promoted, ok := board.PromotedOf(m.Piece); ok {
			capturedValue += board.PieceValue[promoted] - board.PieceValue[m.Piece]
		}
	}

	var occupied board.Bitboard
	us := pos.SideToMove
	if m.Drop {
		occupied = pos.AllOccupied
	} else {
		occupied = pos.AllOccupied.Clear(m.From)
	}

	attackerValue := board.PieceValue[m.Piece]
	return seeSwap(pos, to, occupied, us.Other(), attackerValue, capturedValue)
}

// seeSwap runs the alternating-capture swap algorithm from Stockfish's
// SEE, adapted to query attackers via Position.AttackersByColor instead of
// chess-specific per-piece-type attack bitboards.
func seeSwap(pos *board.Position, target board.Square, occupied board.Bitboard, side board.Color, attackerValue, initialGain int) int {
	var gain [32]int
	d := 0
	gain[d] = initialGain

	for {
		d++
		if d >= len(gain) {
			break
		}
		gain[d] = attackerValue - gain[d-1]
		if maxInt(-gain[d-1], gain[d]) < 0 {
			break
		}

		sq, pt := leastValuableAttacker(pos, target, side, occupied)
		if sq == board.NoSquare {
			break
		}

		occupied = occupied.Clear(sq)
		attackerValue = board.PieceValue[pt]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -maxInt(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker returns the cheapest piece of side attacking target
// given occupied, or NoSquare if side has no such attacker. Checked in
// ascending PieceValue order so the swap algorithm always recaptures with
// the least valuable piece, as the exchange-evaluation algorithm requires.
func leastValuableAttacker(pos *board.Position, target board.Square, side board.Color, occupied board.Bitboard) (board.Square, board.PieceType) {
	attackers := pos.AttackersByColor(target, side, occupied)
	if !attackers.More() {
		return board.NoSquare, board.NoPieceType
	}

	best := board.NoSquare
	bestType := board.NoPieceType
	bestValue := 1 << 30
	for pt := board.Pawn; pt < board.NoPieceType; pt++ {
		bb := pos.Pieces[side][pt].And(occupied).And(attackers)
		if !bb.More() {
			continue
		}
		if board.PieceValue[pt] < bestValue {
			bestValue = board.PieceValue[pt]
			bestType = pt
			best = bb.LSB()
		}
	}
	return best, bestType
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
