// Package usi implements the USI (Universal Shogi Interface) protocol:
// a stdin/stdout command loop that drives an engine.Engine the way a
// shogi GUI (ShogiGUI, Shogidokoro, 81Dojo) expects.
package usi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hailam/chessplay-shogi/internal/board"
	"github.com/hailam/chessplay-shogi/internal/engine"
)

const (
	engineName   = "chessplay-shogi"
	engineAuthor = "chessplay contributors"
)

// USI wraps an engine.Engine with the USI command loop.
type USI struct {
	eng *engine.Engine
	out io.Writer

	pos         *board.Position
	posHistory  []uint64
	debug       bool
	hashSizeMB  int
	searchDepth int

	mu        sync.Mutex
	searching bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a USI handler wrapping eng, writing protocol output to out.
func New(eng *engine.Engine, out io.Writer) *USI {
	return &USI{
		eng:         eng,
		out:         out,
		pos:         board.NewPosition(),
		hashSizeMB:  16,
		searchDepth: 5,
	}
}

// Run reads USI commands from in until "quit" or EOF.
func (u *USI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if u.handleLine(line) {
			return nil
		}
	}
	return scanner.Err()
}

// handleLine dispatches one command line. It returns true if the command
// loop should stop (a "quit" was received).
func (u *USI) handleLine(line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "usi":
		u.handleUSI()
	case "isready":
		u.send("readyok")
	case "setoption":
		u.handleSetOption(args)
	case "usinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "ponderhit":
		// treated like a normal running search: time management already
		// accounts for the position reached, nothing else to switch over.
	case "gameover":
		u.handleStop()
	case "quit":
		u.handleStop()
		return true
	case "d":
		u.handleDebugPrint()
	default:
		if u.debug {
			u.send(fmt.Sprintf("info string unknown command: %s", cmd))
		}
	}
	return false
}

func (u *USI) send(s string) {
	fmt.Fprintln(u.out, s)
}

func (u *USI) handleUSI() {
	u.send("id name " + engineName)
	u.send("id author " + engineAuthor)
	u.send("option name USI_Hash type spin default 16 min 1 max 4096")
	u.send("option name USI_Threads type spin default 1 min 1 max 64")
	u.send("option name USI_Ponder type check default false")
	u.send("option name depth type spin default 5 min 1 max 64")
	u.send("option name BookFile type string default <empty>")
	u.send("usiok")
}

func (u *USI) handleSetOption(args []string) {
	// USI options arrive as: name <Name> [value <Value>]
	var name, value string
	i := 0
	for i < len(args) {
		switch args[i] {
		case "name":
			i++
			var nameParts []string
			for i < len(args) && args[i] != "value" {
				nameParts = append(nameParts, args[i])
				i++
			}
			name = strings.Join(nameParts, " ")
		case "value":
			i++
			var valueParts []string
			for i < len(args) {
				valueParts = append(valueParts, args[i])
				i++
			}
			value = strings.Join(valueParts, " ")
		default:
			i++
		}
	}

	switch strings.ToLower(name) {
	case "usi_hash":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			u.hashSizeMB = n
		}
	case "depth":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			u.searchDepth = n
		}
	case "usi_ponder":
		// ponder mode is accepted but does not change search behavior;
		// ponderhit is a no-op (see handleLine).
	case "bookfile":
		if value != "" && value != "<empty>" {
			if err := u.eng.LoadBook(value); err != nil {
				u.send(fmt.Sprintf("info string failed to load book %s: %v", value, err))
			}
		}
	}
}

func (u *USI) handleNewGame() {
	u.eng.Clear()
	u.pos = board.NewPosition()
	u.posHistory = u.posHistory[:0]
}

// handlePosition parses "position [startpos|sfen <sfen>] [moves m1 m2 ...]".
func (u *USI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var pos *board.Position
	idx := 0

	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
		idx = 1
	case "sfen":
		// the SFEN itself is space-separated: board side hands movenum
		end := 1
		for end < len(args) && args[end] != "moves" {
			end++
		}
		sfen := strings.Join(args[1:end], " ")
		p, err := board.ParseSFEN(sfen)
		if err != nil {
			u.send(fmt.Sprintf("info string invalid sfen: %v", err))
			return
		}
		pos = p
		idx = end
	default:
		u.send("info string malformed position command")
		return
	}

	history := []uint64{pos.Hash}

	if idx < len(args) && args[idx] == "moves" {
		for _, ms := range args[idx+1:] {
			m, err := board.ParseMove(ms, pos)
			if err != nil {
				u.send(fmt.Sprintf("info string illegal move in position command: %s (%v)", ms, err))
				break
			}
			if !isLegal(pos, m) {
				u.send(fmt.Sprintf("info string illegal move in position command: %s", ms))
				break
			}
			pos.MakeMove(m)
			history = append(history, pos.Hash)
		}
	}

	u.pos = pos
	u.posHistory = history
}

func isLegal(pos *board.Position, m board.Move) bool {
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i) == m {
			return true
		}
	}
	return false
}

// handleGo parses "go [depth D] [movetime T] [btime T] [wtime T]
// [binc T] [winc T] [byoyomi T] [movestogo N] [nodes N] [infinite] [ponder]"
// and runs the search in a goroutine so stop/quit can interrupt it.
func (u *USI) handleGo(args []string) {
	limits := engine.USILimits{Depth: u.searchDepth}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			i++
			if i < len(args) {
				if n, err := strconv.Atoi(args[i]); err == nil {
					limits.Depth = n
				}
			}
		case "movetime":
			i++
			if i < len(args) {
				if n, err := strconv.Atoi(args[i]); err == nil {
					limits.MoveTime = time.Duration(n) * time.Millisecond
				}
			}
		case "btime":
			i++
			if i < len(args) {
				if n, err := strconv.Atoi(args[i]); err == nil {
					limits.Time[board.Black] = time.Duration(n) * time.Millisecond
				}
			}
		case "wtime":
			i++
			if i < len(args) {
				if n, err := strconv.Atoi(args[i]); err == nil {
					limits.Time[board.White] = time.Duration(n) * time.Millisecond
				}
			}
		case "binc":
			i++
			if i < len(args) {
				if n, err := strconv.Atoi(args[i]); err == nil {
					limits.Inc[board.Black] = time.Duration(n) * time.Millisecond
				}
			}
		case "winc":
			i++
			if i < len(args) {
				if n, err := strconv.Atoi(args[i]); err == nil {
					limits.Inc[board.White] = time.Duration(n) * time.Millisecond
				}
			}
		case "byoyomi":
			i++
			if i < len(args) {
				if n, err := strconv.Atoi(args[i]); err == nil {
					limits.Byoyomi = time.Duration(n) * time.Millisecond
				}
			}
		case "movestogo":
			i++
			if i < len(args) {
				if n, err := strconv.Atoi(args[i]); err == nil {
					limits.MovesToGo = n
				}
			}
		case "nodes":
			i++
			if i < len(args) {
				if n, err := strconv.ParseUint(args[i], 10, 64); err == nil {
					limits.Nodes = n
				}
			}
		case "infinite":
			limits.Infinite = true
		case "ponder":
			limits.Ponder = true
		}
	}

	u.mu.Lock()
	if u.searching {
		u.mu.Unlock()
		return
	}
	u.searching = true
	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	done := make(chan struct{})
	u.done = done
	u.mu.Unlock()

	pos := u.pos
	ply := len(u.posHistory)
	u.eng.SetPositionHistory(u.posHistory)
	u.eng.OnInfo = func(info engine.SearchInfo) {
		u.sendInfo(info)
	}

	go func() {
		defer close(done)
		move := u.eng.SearchWithUSILimits(ctx, pos, limits, ply)

		u.mu.Lock()
		u.searching = false
		u.mu.Unlock()

		if move == board.NoMove || !isLegal(pos, move) {
			u.send("bestmove resign")
			return
		}
		u.send("bestmove " + move.String())
	}()
}

func (u *USI) sendInfo(info engine.SearchInfo) {
	var pv strings.Builder
	for i, m := range info.PV {
		if i > 0 {
			pv.WriteByte(' ')
		}
		pv.WriteString(m.String())
	}

	nps := uint64(0)
	if info.Time > 0 {
		nps = uint64(float64(info.Nodes) / info.Time.Seconds())
	}

	u.send(fmt.Sprintf("info depth %d score %s nodes %d nps %d time %d hashfull %d pv %s",
		info.Depth, scoreToken(info.Score), info.Nodes, nps, info.Time.Milliseconds(), info.HashFull, pv.String()))
}

// scoreToken formats a centipawn score as USI's "cp N" or, near a forced
// mate, "mate N" (N plies to deliver or suffer the mate).
func scoreToken(score int) string {
	const mateScore = 29000
	if score > mateScore-1000 {
		return fmt.Sprintf("mate %d", mateScore-score)
	}
	if score < -mateScore+1000 {
		return fmt.Sprintf("mate %d", -mateScore-score)
	}
	return fmt.Sprintf("cp %d", score)
}

func (u *USI) handleStop() {
	u.mu.Lock()
	cancel := u.cancel
	done := u.done
	u.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (u *USI) handleDebugPrint() {
	u.send(u.pos.String())
}
