package engine

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessplay-shogi/internal/board"
	"github.com/hailam/chessplay-shogi/internal/book"
	"github.com/hailam/chessplay-shogi/internal/diagnostics"
	"github.com/hailam/chessplay-shogi/internal/tablebase"
)

// NumWorkers is the number of parallel search workers (matches CPU cores).
var NumWorkers = runtime.GOMAXPROCS(0)

// SearchInfo reports USI `info` line contents for one completed depth.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // permille of hash table used
}

// SearchLimits specifies constraints on an analysis search (used by
// SearchMultiPV, which does not go through USI time management).
type SearchLimits struct {
	Depth    int
	Nodes    uint64
	MoveTime time.Duration
	Infinite bool
	MultiPV  int
}

// SearchResult contains one principal variation from SearchMultiPV.
type SearchResult struct {
	Move  board.Move
	Score int
	PV    []board.Move
	Depth int
}

// Engine orchestrates a Lazy-SMP search pool over a shared transposition
// table, shared history table and shared eval cache, with a pawn table per
// worker.
type Engine struct {
	workers       []*Worker
	pawnTable     *PawnTable
	evalCache     *EvalCache
	tt            *TranspositionTable
	sharedHistory *SharedHistory
	stopFlag      atomic.Bool

	book      *book.Book
	tablebase tablebase.Prober

	rootPosHashes []uint64

	diag *diagnostics.Handle

	// OnInfo, if set, is called once per depth with the current best line.
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine with a ttSizeMB-sized shared transposition
// table and one worker per available CPU.
func NewEngine(ttSizeMB int, diag *diagnostics.Handle) *Engine {
	tt := NewTranspositionTable(ttSizeMB, diag)
	sharedHistory := NewSharedHistory()
	evalCache := NewEvalCache(1 << 20)

	e := &Engine{
		tt:            tt,
		pawnTable:     NewPawnTable(4),
		evalCache:     evalCache,
		sharedHistory: sharedHistory,
		tablebase:     tablebase.NoopProber{},
		diag:          diag,
		workers:       make([]*Worker, NumWorkers),
	}

	for i := 0; i < NumWorkers; i++ {
		workerPawnTable := NewPawnTable(1)
		e.workers[i] = NewWorker(i, tt, workerPawnTable, evalCache, sharedHistory, &e.stopFlag, diag)
	}

	return e
}

// LoadBook loads an opening book keyed by the engine's own position hash.
func (e *Engine) LoadBook(filename string) error {
	b, err := book.Load(filename)
	if err != nil {
		return err
	}
	e.book = b
	return nil
}

// SetBook sets the opening book directly.
func (e *Engine) SetBook(b *book.Book) { e.book = b }

// HasBook returns true if an opening book is loaded.
func (e *Engine) HasBook() bool { return e.book != nil }

// SetTablebase sets the tablebase prober; pass tablebase.NoopProber{} to
// disable tablebase probing.
func (e *Engine) SetTablebase(tb tablebase.Prober) {
	e.tablebase = tb
	for _, w := range e.workers {
		w.SetTablebase(tb, 1)
	}
}

// HasTablebase returns true if a tablebase is loaded and available.
func (e *Engine) HasTablebase() bool {
	return e.tablebase != nil && e.tablebase.Available()
}

// SetPositionHistory sets the game's position-hash history for repetition
// detection; call before Search with hashes accumulated over the game.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootPosHashes = make([]uint64, len(hashes))
	copy(e.rootPosHashes, hashes)
	for _, w := range e.workers {
		w.SetRootHistory(hashes)
	}
}

// SearchWithUSILimits runs the pool under USI time management and returns
// the best move found. ply is the current game ply.
func (e *Engine) SearchWithUSILimits(ctx context.Context, pos *board.Position, limits USILimits, ply int) board.Move {
	if e.book != nil {
		if move, ok := e.book.Probe(pos); ok {
			return move
		}
	}

	if e.tablebase != nil && e.tablebase.Available() {
		if tablebase.CountPieces(pos) <= e.tablebase.MaxPieces() {
			if result := e.tablebase.ProbeRoot(pos); result.Found && result.Move != board.NoMove {
				return result.Move
			}
		}
	}

	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, ply)

	e.stopFlag.Store(false)
	e.tt.NewSearch()
	for _, w := range e.workers {
		w.Reset()
	}

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	resultCh := make(chan WorkerResult, NumWorkers*maxDepth)

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < NumWorkers; i++ {
		workerID := i
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					if e.diag != nil {
						e.diag.IncWorkerPanic(workerID, r)
					}
					err = nil // a panicking helper worker must not abort the pool
				}
			}()
			e.workerSearch(groupCtx, workerID, pos, maxDepth, resultCh)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		group.Wait()
		close(resultCh)
		close(done)
	}()

	startTime := time.Now()
	var bestMove board.Move
	var bestScore int
	var bestPV []board.Move
	var bestDepth int
	var lastBestMove board.Move
	var stabilityCount int

resultLoop:
	for {
		select {
		case result, ok := <-resultCh:
			if !ok {
				break resultLoop
			}

			if result.Move == board.NoMove {
				continue
			}
			if result.Depth < bestDepth || (result.Depth == bestDepth && result.Score <= bestScore) {
				continue
			}

			if result.Depth > bestDepth {
				if result.Move == lastBestMove {
					stabilityCount++
				} else {
					stabilityCount = 0
				}
				lastBestMove = result.Move
			}

			bestMove, bestScore, bestPV, bestDepth = result.Move, result.Score, result.PV, result.Depth

			if e.OnInfo != nil {
				e.OnInfo(SearchInfo{
					Depth:    bestDepth,
					Score:    bestScore,
					Nodes:    e.getTotalNodes(),
					Time:     time.Since(startTime),
					PV:       bestPV,
					HashFull: e.tt.HashFull(),
				})
			}

			if bestScore > MateScore-100 || bestScore < -MateScore+100 {
				e.stopFlag.Store(true)
				break resultLoop
			}

			if tm.PastOptimum() && stabilityCount >= 4 {
				e.stopFlag.Store(true)
				break resultLoop
			}

		case <-time.After(5 * time.Millisecond):
			if tm.ShouldStop() || (limits.Nodes > 0 && e.getTotalNodes() >= limits.Nodes) {
				e.stopFlag.Store(true)
				break resultLoop
			}
			if ctx.Err() != nil {
				e.stopFlag.Store(true)
				break resultLoop
			}

		case <-done:
			break resultLoop
		}
	}

	e.stopFlag.Store(true)
	<-done

	return bestMove
}

// workerSearch runs iterative deepening in one goroutine, staggering start
// depths so helper workers skip redundant shallow plies and diversifying
// aspiration windows across workers for broader tree coverage (Lazy SMP:
// each worker searches the whole tree and workers share results only
// through the shared tables; there is no in-tree split of sibling moves).
func (e *Engine) workerSearch(ctx context.Context, workerID int, pos *board.Position, maxDepth int, resultCh chan<- WorkerResult) {
	worker := e.workers[workerID]
	worker.InitSearch(pos.Copy())

	startDepth := 1
	switch {
	case workerID >= 6:
		startDepth = 4
	case workerID >= 3:
		startDepth = 3
	case workerID >= 1:
		startDepth = 2
	}

	var prevScore int
	recentScores := make([]int, 0, 10)

	for depth := startDepth; depth <= maxDepth; depth++ {
		if e.stopFlag.Load() || ctx.Err() != nil {
			return
		}

		var move board.Move
		var score int

		if depth >= 5 && prevScore != 0 {
			volatility := 0
			if len(recentScores) >= 2 {
				minScore, maxScore := recentScores[0], recentScores[0]
				for _, s := range recentScores {
					if s < minScore {
						minScore = s
					}
					if s > maxScore {
						maxScore = s
					}
				}
				volatility = maxScore - minScore
			}

			var window int
			switch {
			case volatility > 400:
				window = 150 + volatility/4
			case volatility < 50:
				window = 25
			default:
				window = 50 + volatility/8
			}
			window += (workerID % 8) * 3

			alpha := prevScore - window
			beta := prevScore + window
			retryCount := 0
			for {
				move, score = worker.SearchDepth(depth, alpha, beta)
				if e.stopFlag.Load() {
					return
				}
				if score <= alpha {
					retryCount++
					if retryCount >= 2 {
						alpha = -Infinity
					} else {
						alpha = prevScore - window*2
					}
				} else if score >= beta {
					retryCount++
					if retryCount >= 2 {
						beta = Infinity
					} else {
						beta = prevScore + window*2
					}
				} else {
					break
				}
				if alpha == -Infinity && beta == Infinity {
					break
				}
			}
		} else {
			move, score = worker.SearchDepth(depth, -Infinity, Infinity)
		}

		if e.stopFlag.Load() {
			return
		}

		prevScore = score
		recentScores = append(recentScores, score)
		if len(recentScores) > 10 {
			recentScores = recentScores[1:]
		}

		resultCh <- WorkerResult{
			WorkerID: workerID,
			Depth:    depth,
			Score:    score,
			Move:     move,
			PV:       worker.GetPV(),
			Nodes:    worker.Nodes(),
		}
	}
}

func (e *Engine) getTotalNodes() uint64 {
	var total uint64
	for _, w := range e.workers {
		total += w.Nodes()
	}
	return total
}

// SearchMultiPV finds the top limits.MultiPV principal variations for
// analysis, searching the root repeatedly with each prior best move
// excluded, using only worker 0 (multi-PV does not parallelize well since
// later passes depend on earlier ones' exclusions).
func (e *Engine) SearchMultiPV(ctx context.Context, pos *board.Position, limits SearchLimits) []SearchResult {
	numPV := limits.MultiPV
	if numPV <= 0 {
		numPV = 1
	}

	worker := e.workers[0]
	results := make([]SearchResult, 0, numPV)
	var excluded []board.Move

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = time.Now().Add(limits.MoveTime)
	}

	for i := 0; i < numPV; i++ {
		worker.Reset()
		worker.InitSearch(pos.Copy())
		worker.SetExcludedMoves(excluded)
		e.tt.NewSearch()
		e.stopFlag.Store(false)

		var bestMove board.Move
		var bestScore int
		var bestDepth int

		for depth := 1; depth <= maxDepth; depth++ {
			if !deadline.IsZero() && time.Now().After(deadline) {
				break
			}
			if ctx.Err() != nil {
				break
			}

			move, score := worker.SearchDepth(depth, -Infinity, Infinity)
			if move == board.NoMove {
				break
			}
			bestMove, bestScore, bestDepth = move, score, depth

			if score > MateScore-100 || score < -MateScore+100 {
				break
			}
		}

		worker.SetExcludedMoves(nil)

		if bestMove == board.NoMove {
			break
		}

		results = append(results, SearchResult{Move: bestMove, Score: bestScore, PV: worker.GetPV(), Depth: bestDepth})
		excluded = append(excluded, bestMove)
	}

	for i := 0; i < len(results)-1; i++ {
		maxIdx := i
		for j := i + 1; j < len(results); j++ {
			if results[j].Score > results[maxIdx].Score {
				maxIdx = j
			}
		}
		if maxIdx != i {
			results[i], results[maxIdx] = results[maxIdx], results[i]
		}
	}

	return results
}

// Stop signals every worker to halt as soon as it next checks the flag.
func (e *Engine) Stop() { e.stopFlag.Store(true) }

// Clear resets the transposition table and every worker's move-ordering
// tables between games.
func (e *Engine) Clear() {
	e.tt.Clear()
	for _, w := range e.workers {
		w.orderer.Clear()
	}
	e.sharedHistory.Clear()
}

// Perft counts leaf nodes at depth for move-generation testing.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		if undo.Valid {
			nodes += e.Perft(pos, depth-1)
		}
		pos.UnmakeMove(move, undo)
	}
	return nodes
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int { return Evaluate(pos) }

// ScoreToString renders a centipawn score in pawns with two decimals
// ("1.05" for 105) or a mate score as "mate N" in moves, for human-readable
// display. USI info lines use the usi package's own "cp N"/"mate N"
// formatting instead.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		return "mate " + itoa((MateScore-score+1)/2)
	}
	if score < -MateScore+100 {
		return "mate -" + itoa((MateScore+score+1)/2)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	frac := itoa(score % 100)
	if score%100 < 10 {
		frac = "0" + frac
	}
	return sign + itoa(score/100) + "." + frac
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
