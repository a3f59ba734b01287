package engine

import (
	"math"
	"sync/atomic"

	"github.com/hailam/chessplay-shogi/internal/board"
	"github.com/hailam/chessplay-shogi/internal/diagnostics"
	"github.com/hailam/chessplay-shogi/internal/tablebase"
)

// Search bounds shared by every node in the tree.
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// PVTable stores the principal variation extracted during search.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// lmrReductions is a precomputed logarithmic late-move-reduction table,
// following the reference engine's Stockfish-derived formula.
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(21.46 * math.Log(float64(d)) * math.Log(float64(m)) / 1024.0)
		}
	}
}

// ttWriteRingSize bounds the per-worker buffer of TT stores that lost the
// race for a shard's lock; entries older than this are dropped rather than
// ever blocking the search (§4.3).
const ttWriteRingSize = 64

type ttPendingWrite struct {
	hash     uint64
	depth    int
	score    int
	flag     TTFlag
	bestMove board.Move
}

// Worker runs one goroutine's share of a Lazy-SMP search: its own position
// copy, move ordering tables, and search stacks, against the transposition
// table, eval cache and shared history passed in by the pool. Engine gives
// every worker a pawn table of its own.
type Worker struct {
	id int

	pos     *board.Position
	orderer *MoveOrderer

	nodes uint64
	pv    PVTable

	undoStack [MaxPly]board.UndoInfo
	evalStack [MaxPly]int

	posHistoryBuffer [768]uint64
	posHistoryLen    int
	rootPosHashes    []uint64

	excludedRootMoves []board.Move

	tt            *TranspositionTable
	pawnTable     *PawnTable
	evalCache     *EvalCache
	sharedHistory *SharedHistory
	corrHistory   *CorrectionHistory
	stopFlag      *atomic.Bool
	diag          *diagnostics.Handle

	ttWriteRing    [ttWriteRingSize]ttPendingWrite
	ttWriteRingLen int

	tbProber     tablebase.Prober
	tbProbeDepth int

	resultCh chan<- WorkerResult
	depth    int
}

// WorkerResult reports one worker's outcome at a completed depth.
type WorkerResult struct {
	WorkerID int
	Depth    int
	Score    int
	Move     board.Move
	PV       []board.Move
	Nodes    uint64
}

// NewWorker creates a search worker bound to shared tables.
func NewWorker(id int, tt *TranspositionTable, pawnTable *PawnTable, evalCache *EvalCache, sharedHistory *SharedHistory, stopFlag *atomic.Bool, diag *diagnostics.Handle) *Worker {
	return &Worker{
		id:            id,
		orderer:       NewMoveOrderer(),
		tt:            tt,
		pawnTable:     pawnTable,
		evalCache:     evalCache,
		sharedHistory: sharedHistory,
		corrHistory:   NewCorrectionHistory(),
		stopFlag:      stopFlag,
		diag:          diag,
	}
}

// SetTablebase attaches a tablebase prober, probed only from probeDepth on.
func (w *Worker) SetTablebase(prober tablebase.Prober, probeDepth int) {
	w.tbProber = prober
	w.tbProbeDepth = probeDepth
	if w.tbProbeDepth < 1 {
		w.tbProbeDepth = 1
	}
}

func (w *Worker) ID() int              { return w.id }
func (w *Worker) Nodes() uint64        { return w.nodes }
func (w *Worker) Pos() *board.Position { return w.pos }

// Reset clears per-search state before a new iterative-deepening run.
func (w *Worker) Reset() {
	w.nodes = 0
	w.orderer.Clear()
	w.ttWriteRingLen = 0
}

// SetRootHistory copies the game's position-hash history for repetition
// detection; InitSearch appends the position about to be searched.
func (w *Worker) SetRootHistory(hashes []uint64) {
	w.rootPosHashes = make([]uint64, len(hashes))
	copy(w.rootPosHashes, hashes)
}

func (w *Worker) SetResultChannel(ch chan<- WorkerResult) { w.resultCh = ch }
func (w *Worker) SetExcludedMoves(moves []board.Move)     { w.excludedRootMoves = moves }

// InitSearch binds pos (a dedicated copy owned by this worker alone) and
// seeds the repetition-history buffer.
func (w *Worker) InitSearch(pos *board.Position) {
	w.pos = pos

	rootLen := len(w.rootPosHashes)
	if rootLen > 640 {
		copy(w.posHistoryBuffer[:640], w.rootPosHashes[rootLen-640:])
		rootLen = 640
	} else {
		copy(w.posHistoryBuffer[:rootLen], w.rootPosHashes)
	}
	w.posHistoryBuffer[rootLen] = w.pos.Hash
	w.posHistoryLen = rootLen + 1
}

// SearchDepth runs one iterative-deepening pass at depth and reports the
// result over the worker's result channel, if set.
func (w *Worker) SearchDepth(depth, alpha, beta int) (board.Move, int) {
	w.depth = depth

	score := w.negamax(depth, 0, alpha, beta, board.NoMove, board.NoMove, false)

	var bestMove board.Move
	if w.pv.length[0] > 0 {
		bestMove = w.pv.moves[0][0]
	}
	if bestMove == board.NoMove && !w.stopFlag.Load() {
		moves := w.pos.GenerateLegalMoves()
		if moves.Len() > 0 {
			bestMove = moves.Get(0)
		}
	}

	if w.resultCh != nil && !w.stopFlag.Load() {
		pv := make([]board.Move, w.pv.length[0])
		copy(pv, w.pv.moves[0][:w.pv.length[0]])
		w.resultCh <- WorkerResult{WorkerID: w.id, Depth: depth, Score: score, Move: bestMove, PV: pv, Nodes: w.nodes}
	}

	w.flushTTWriteRing()
	return bestMove, score
}

// GetPV returns the principal variation from the last completed search.
func (w *Worker) GetPV() []board.Move {
	pv := make([]board.Move, w.pv.length[0])
	copy(pv, w.pv.moves[0][:w.pv.length[0]])
	return pv
}

func (w *Worker) isExcludedRootMove(m board.Move) bool {
	for _, excluded := range w.excludedRootMoves {
		if m == excluded {
			return true
		}
	}
	return false
}

// evaluate returns the static score for the current position from the
// side to move's point of view, consulting the shared eval cache unless
// the position was reached by a capture or promotion (those nodes rarely
// recur under the same key, so admission there isn't worth the cache-line
// churn).
func (w *Worker) evaluate(skipCache bool) int {
	if !skipCache && w.evalCache != nil {
		if score, ok := w.evalCache.Get(w.pos.Hash); ok {
			return score
		}
	}
	score := EvaluateWithPawnCache(w.pos, w.pawnTable)
	if w.pos.SideToMove == board.White {
		score = -score
	}
	if !skipCache && w.evalCache != nil {
		w.evalCache.Store(w.pos.Hash, score)
	}
	return score
}

// isDraw detects sennichite: a position recurring for the fourth time
// draws the game (Shogi has no 50-move or insufficient-material rule).
func (w *Worker) isDraw() bool {
	if w.posHistoryLen == 0 {
		return false
	}
	currentHash := w.pos.Hash
	count := 0
	for i := 0; i < w.posHistoryLen; i++ {
		if w.posHistoryBuffer[i] == currentHash {
			count++
			if count >= 4 {
				return true
			}
		}
	}
	return false
}

func (w *Worker) queueTTWrite(hash uint64, depth, score int, flag TTFlag, bestMove board.Move) {
	if w.ttWriteRingLen >= ttWriteRingSize {
		copy(w.ttWriteRing[:], w.ttWriteRing[1:])
		w.ttWriteRingLen--
	}
	w.ttWriteRing[w.ttWriteRingLen] = ttPendingWrite{hash, depth, score, flag, bestMove}
	w.ttWriteRingLen++
}

// storeTT tries the shared TT directly; on lock contention the write is
// buffered for a later opportunistic flush instead of blocking the search.
func (w *Worker) storeTT(hash uint64, depth, score int, flag TTFlag, bestMove board.Move) {
	if !w.tt.TryStore(hash, depth, score, flag, bestMove) {
		w.queueTTWrite(hash, depth, score, flag, bestMove)
	}
}

// flushTTWriteRing retries every buffered store, keeping whatever still
// fails to land for the next opportunity (beta cutoff or depth boundary).
func (w *Worker) flushTTWriteRing() {
	if w.ttWriteRingLen == 0 {
		return
	}
	kept := 0
	for i := 0; i < w.ttWriteRingLen; i++ {
		e := w.ttWriteRing[i]
		if !w.tt.TryStore(e.hash, e.depth, e.score, e.flag, e.bestMove) {
			w.ttWriteRing[kept] = e
			kept++
		}
	}
	w.ttWriteRingLen = kept
}

// negamax searches (depth, ply, alpha, beta) and returns the side-to-move
// relative score, following §4.5's ten-step node body.
func (w *Worker) negamax(depth, ply int, alpha, beta int, prevMove, excludedMove board.Move, cutNode bool) int {
	if ply >= MaxPly-1 {
		return w.evaluate(false)
	}

	if w.nodes&4095 == 0 && w.stopFlag.Load() {
		return 0
	}
	w.nodes++
	if w.diag != nil {
		w.diag.AddNodes(1)
	}

	w.pv.length[ply] = ply

	if ply > 0 && w.isDraw() {
		return 0
	}

	if ply > 0 && w.tbProber != nil && depth >= w.tbProbeDepth {
		if tablebase.CountPieces(w.pos) <= w.tbProber.MaxPieces() {
			if res := w.tbProber.Probe(w.pos); res.Found {
				tbScore := tablebase.WDLToScore(res.WDL, ply)
				switch res.WDL {
				case tablebase.WDLWin, tablebase.WDLCursedWin:
					if tbScore >= beta {
						w.storeTT(w.pos.Hash, MaxPly, AdjustScoreToTT(tbScore, ply), TTLowerBound, board.NoMove)
						return tbScore
					}
					if tbScore > alpha {
						alpha = tbScore
					}
				case tablebase.WDLLoss, tablebase.WDLBlessedLoss:
					if tbScore <= alpha {
						w.storeTT(w.pos.Hash, MaxPly, AdjustScoreToTT(tbScore, ply), TTUpperBound, board.NoMove)
						return tbScore
					}
					if tbScore < beta {
						beta = tbScore
					}
				default:
					w.storeTT(w.pos.Hash, MaxPly, AdjustScoreToTT(tbScore, ply), TTExact, board.NoMove)
					return tbScore
				}
			}
		}
	}

	var ttMove board.Move
	ttEntry, found := w.tt.TryProbe(w.pos.Hash, depth)
	if found {
		ttMove = ttEntry.BestMove
		ttCutoffAllowed := ply > 0 || !w.isExcludedRootMove(ttMove)
		if ttCutoffAllowed {
			score := AdjustScoreFromTT(int(ttEntry.Score), ply)
			switch ttEntry.Flag {
			case TTExact:
				if ply == 0 && ttMove != board.NoMove {
					w.pv.moves[0][0] = ttMove
					w.pv.length[0] = 1
				}
				if w.diag != nil {
					w.diag.IncTTHit()
				}
				return score
			case TTLowerBound:
				if score > alpha {
					alpha = score
				}
			case TTUpperBound:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				if ply == 0 && ttMove != board.NoMove {
					w.pv.moves[0][0] = ttMove
					w.pv.length[0] = 1
				}
				if w.diag != nil {
					w.diag.IncTTHit()
				}
				return score
			}
		}
	} else if entry, ok := w.tt.TryProbe(w.pos.Hash, 0); ok {
		// A shallower entry can still seed move ordering even though it
		// can't satisfy the depth-gated cutoff above.
		ttMove = entry.BestMove
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	inCheck := w.pos.InCheck()

	// Internal iterative reduction: without a TT move to search first,
	// shrink depth instead of recursing to populate one (§4.5 step 6).
	if depth >= 4 && ttMove == board.NoMove && !inCheck {
		depth -= 2
		if w.diag != nil {
			w.diag.IncIID()
		}
	}

	extension := 0
	if inCheck {
		extension = 1
	}

	rawEval := w.evaluate(prevMove.IsCapture() || prevMove.Promote)
	staticEval := rawEval + w.corrHistory.Get(w.pos)
	w.evalStack[ply] = staticEval

	improving := ply >= 2 && staticEval > w.evalStack[ply-2]

	// Reverse futility pruning.
	if !inCheck && depth <= 6 && ply > 0 {
		margin := 80 * depth
		if !improving {
			margin -= 20
		}
		if staticEval-margin >= beta {
			return beta
		}
	}

	// Null-move pruning.
	if !inCheck && depth >= 3 && ply > 0 && w.pos.HasNonPawnMaterial() {
		r := 3 + depth/4
		if r > depth-1 {
			r = depth - 1
		}
		undo := w.pos.MakeNullMove()
		nullScore := -w.negamax(depth-1-r, ply+1, -beta, -beta+1, board.NoMove, board.NoMove, !cutNode)
		w.pos.UnmakeNullMove(undo)
		if nullScore >= beta {
			if w.diag != nil {
				w.diag.IncNullMovePrune()
			}
			return nullScore
		}
	}

	pruneQuietMoves := false
	if depth <= 5 && !inCheck && ply > 0 {
		futilityMargin := [6]int{0, 200, 300, 500, 700, 900}
		if staticEval+futilityMargin[depth] <= alpha {
			pruneQuietMoves = true
		}
	}

	moves := w.pos.GenerateLegalMoves()

	// No legal moves: Shogi has no stalemate, so the side to move simply
	// loses whether or not it was already in check.
	if moves.Len() == 0 {
		return -MateScore + ply
	}

	scores := w.orderer.ScoreMovesWithCounter(w.pos, moves, ply, ttMove, prevMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	movesSearched := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if ply == 0 && w.isExcludedRootMove(move) {
			continue
		}
		if move == excludedMove {
			continue
		}

		isCapture := move.IsCapture()
		isPromotion := move.Promote

		if pruneQuietMoves && !isCapture && !isPromotion && bestMove != board.NoMove {
			continue
		}

		if isCapture && depth <= 7 && !inCheck && movesSearched > 0 {
			if SEE(w.pos, move) < -20*depth {
				continue
			}
		}

		if depth <= 7 && !inCheck && movesSearched > 0 && !isCapture && !isPromotion && move != ttMove {
			threshold := 3 + depth*depth
			if !improving {
				threshold = threshold * 2 / 3
			}
			if movesSearched >= threshold {
				continue
			}
		}

		undo := w.pos.MakeMove(move)
		if !undo.Valid {
			w.pos.UnmakeMove(move, undo)
			continue
		}
		w.undoStack[ply] = undo

		w.posHistoryBuffer[w.posHistoryLen] = w.pos.Hash
		w.posHistoryLen++
		movesSearched++

		newDepth := depth - 1 + extension

		var score int
		if movesSearched > 4 && depth >= 3 && !inCheck && !isCapture && !isPromotion {
			d := depth
			if d > 63 {
				d = 63
			}
			mc := movesSearched
			if mc > 63 {
				mc = 63
			}
			reduction := lmrReductions[d][mc]
			if !improving {
				reduction++
			}
			if move == ttMove {
				reduction -= 2
			}
			if cutNode {
				reduction += 2
			}
			hist := (w.orderer.GetHistoryScore(move) + w.sharedHistory.Get(int(move.Piece), int(move.To))) / 2
			reduction -= hist / 4096
			if reduction < 1 {
				reduction = 1
			}
			reducedDepth := newDepth - reduction
			if reducedDepth < 1 {
				reducedDepth = 1
			}

			if w.diag != nil {
				w.diag.IncLMR()
			}
			score = -w.negamax(reducedDepth, ply+1, -alpha-1, -alpha, move, board.NoMove, true)
			if score > alpha {
				if w.diag != nil {
					w.diag.IncResearch()
				}
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, move, board.NoMove, false)
			}
		} else if movesSearched == 1 {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha, move, board.NoMove, false)
		} else {
			score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha, move, board.NoMove, !cutNode)
			if score > alpha && score < beta {
				if w.diag != nil {
					w.diag.IncResearch()
				}
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, move, board.NoMove, false)
			}
		}

		w.posHistoryLen--
		w.pos.UnmakeMove(move, w.undoStack[ply])

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact

				w.pv.moves[ply][ply] = move
				for j := ply + 1; j < w.pv.length[ply+1]; j++ {
					w.pv.moves[ply][j] = w.pv.moves[ply+1][j]
				}
				w.pv.length[ply] = w.pv.length[ply+1]
			}
		}

		if score >= beta {
			if ply == 0 && bestMove != board.NoMove {
				w.pv.moves[0][0] = bestMove
				w.pv.length[0] = 1
			}

			w.storeTT(w.pos.Hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, bestMove)
			w.flushTTWriteRing()

			if isCapture {
				w.orderer.UpdateCaptureHistory(move.Piece, move.To, move.Captured, depth, true)
			} else {
				w.orderer.UpdateKillers(move, ply)
				w.orderer.UpdateHistory(move, depth, true)
				w.sharedHistory.Update(int(move.Piece), int(move.To), depth*depth)
				w.orderer.UpdateCounterMove(prevMove, move)
				w.orderer.UpdateCountermoveHistory(prevMove, move, depth, true)
			}
			if w.diag != nil {
				w.diag.IncCutoff()
			}

			return score
		}
	}

	if bestMove == board.NoMove {
		bestMove = moves.Get(0)
		if bestScore == -Infinity {
			bestScore = alpha
		}
	}

	if flag == TTExact && !inCheck && depth >= 2 {
		w.corrHistory.Update(w.pos, bestScore, rawEval, depth)
	}

	w.storeTT(w.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)
	return bestScore
}

// quiescence searches noisy continuations below depth 0 to avoid the
// horizon effect, following §4.6.
func (w *Worker) quiescence(ply, alpha, beta int) int {
	const maxQuiescenceExtraPly = 32
	if ply >= MaxPly {
		return w.evaluate(false)
	}
	if w.stopFlag.Load() {
		return 0
	}
	w.nodes++
	originalAlpha := alpha

	var ttMove board.Move
	ttEntry, ttHit := w.tt.TryProbe(w.pos.Hash, 0)
	if ttHit {
		ttMove = ttEntry.BestMove
		score := AdjustScoreFromTT(int(ttEntry.Score), ply)
		switch ttEntry.Flag {
		case TTExact:
			return score
		case TTLowerBound:
			if score >= beta {
				return score
			}
		case TTUpperBound:
			if score <= alpha {
				return score
			}
		}
	}

	inCheck := w.pos.InCheck()

	var standPat, bestValue int
	var bestMove board.Move

	if inCheck {
		bestValue = -MateScore + ply
		standPat = bestValue
	} else {
		standPat = w.evaluate(false)
		bestValue = standPat
		if standPat >= beta {
			w.storeTT(w.pos.Hash, 0, AdjustScoreToTT(standPat, ply), TTLowerBound, board.NoMove)
			return beta
		}
		if standPat > alpha {
			alpha = standPat
		}
		if standPat+board.PieceValue[board.Rook] < alpha {
			return alpha
		}
	}

	var moves *board.MoveList
	if inCheck {
		moves = w.pos.GenerateLegalMoves()
		if moves.Len() == 0 {
			return -MateScore + ply
		}
	} else {
		moves = w.pos.GenerateCaptures()
	}

	scores := w.orderer.ScoreMoves(w.pos, moves, ply, ttMove)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !inCheck && move.IsCapture() {
			if SEE(w.pos, move) < 0 {
				continue
			}
		}

		undo := w.pos.MakeMove(move)
		if !undo.Valid {
			w.pos.UnmakeMove(move, undo)
			continue
		}

		var score int
		if ply < MaxPly-1 {
			score = -w.quiescence(ply+1, -beta, -alpha)
		} else {
			score = -w.evaluate(false)
		}
		w.pos.UnmakeMove(move, undo)

		if score > bestValue {
			bestValue = score
			bestMove = move
			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}

	var ttFlag TTFlag
	switch {
	case bestValue >= beta:
		ttFlag = TTLowerBound
	case bestValue > originalAlpha:
		ttFlag = TTExact
	default:
		ttFlag = TTUpperBound
	}
	w.storeTT(w.pos.Hash, 0, AdjustScoreToTT(bestValue, ply), ttFlag, bestMove)

	return bestValue
}
