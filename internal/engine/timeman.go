package engine

import (
	"time"

	"github.com/hailam/chessplay-shogi/internal/board"
)

// USILimits contains USI `go` time-control parameters. Unlike chess's UCI,
// USI also carries a `byoyomi`: a fixed per-move allowance granted once the
// main clock (btime/wtime) is exhausted, rather than an increment added to
// the clock every move.
type USILimits struct {
	Time      [2]time.Duration // btime, wtime (remaining time for each color)
	Inc       [2]time.Duration // binc, winc (increment per move, rarely used alongside byoyomi)
	Byoyomi   time.Duration    // fixed allowance once the main clock reaches zero
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides other time controls)
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	Infinite  bool             // search until stopped
	Ponder    bool             // ponder mode
}

// TimeManager handles time allocation for searches.
type TimeManager struct {
	optimumTime time.Duration
	maximumTime time.Duration
	startTime   time.Time
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init initializes the time manager for a new search. ply is the current
// game ply (half-move number).
func (tm *TimeManager) Init(limits USILimits, us board.Color, ply int) {
	tm.startTime = time.Now()

	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return
	}

	if limits.Infinite || (limits.Time[us] == 0 && limits.Byoyomi == 0 && limits.MoveTime == 0) {
		tm.optimumTime = time.Hour
		tm.maximumTime = time.Hour
		return
	}

	// A clock with no remaining main time but a byoyomi allowance behaves
	// like fixed-move-time: spend the byoyomi allowance minus a small
	// safety margin every move.
	if limits.Time[us] <= 0 && limits.Byoyomi > 0 {
		budget := limits.Byoyomi - 50*time.Millisecond
		if budget < 10*time.Millisecond {
			budget = 10 * time.Millisecond
		}
		tm.optimumTime = budget
		tm.maximumTime = budget
		return
	}

	timeLeft := limits.Time[us]
	inc := limits.Inc[us]

	mtg := limits.MovesToGo
	if mtg == 0 {
		mtg = 50 - ply/4
		if mtg < 10 {
			mtg = 10
		}
		if mtg > 50 {
			mtg = 50
		}
	}

	baseTime := timeLeft / time.Duration(mtg)
	baseTime += inc * 9 / 10
	// Byoyomi on top of remaining main time extends every move's budget,
	// since it is guaranteed regardless of how the main clock is spent.
	baseTime += limits.Byoyomi * 8 / 10

	tm.optimumTime = baseTime
	if ply < 8 {
		tm.optimumTime = baseTime * 85 / 100
	}

	maxFromOptimum := tm.optimumTime * 5
	maxFromRemaining := timeLeft*8/10 + limits.Byoyomi

	if maxFromOptimum < maxFromRemaining {
		tm.maximumTime = maxFromOptimum
	} else {
		tm.maximumTime = maxFromRemaining
	}

	safetyMargin := timeLeft*95/100 + limits.Byoyomi
	if tm.maximumTime > safetyMargin {
		tm.maximumTime = safetyMargin
	}

	if tm.optimumTime < 10*time.Millisecond {
		tm.optimumTime = 10 * time.Millisecond
	}
	if tm.maximumTime < 50*time.Millisecond {
		tm.maximumTime = 50 * time.Millisecond
	}
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// ShouldStop returns true if the search should stop now.
func (tm *TimeManager) ShouldStop() bool {
	return tm.Elapsed() >= tm.maximumTime
}

// PastOptimum returns true once the optimum time has been exceeded.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Elapsed() >= tm.optimumTime
}

// AdjustForStability shortens the optimum time when the best move has
// been stable for several consecutive depths.
func (tm *TimeManager) AdjustForStability(stability int) {
	if stability >= 6 {
		tm.optimumTime = tm.optimumTime * 40 / 100
	} else if stability >= 4 {
		tm.optimumTime = tm.optimumTime * 60 / 100
	} else if stability >= 2 {
		tm.optimumTime = tm.optimumTime * 80 / 100
	}
}

// AdjustForInstability lengthens the optimum time when the best move has
// kept changing across recent depths.
func (tm *TimeManager) AdjustForInstability(changes int) {
	if changes >= 4 {
		tm.optimumTime = tm.optimumTime * 200 / 100
		if tm.optimumTime > tm.maximumTime {
			tm.optimumTime = tm.maximumTime
		}
	} else if changes >= 2 {
		tm.optimumTime = tm.optimumTime * 150 / 100
		if tm.optimumTime > tm.maximumTime {
			tm.optimumTime = tm.maximumTime
		}
	}
}
