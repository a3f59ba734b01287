// Package diagnostics collects search-time counters and exposes them as
// both structured log lines and OpenTelemetry metric instruments, rather
// than through global mutable state.
package diagnostics

import (
	"context"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/metric"
)

// Handle is threaded explicitly through Engine -> Worker -> search calls.
// A nil *Handle is valid everywhere it is used (every Inc/Add method on a
// nil Handle is a no-op), so instrumentation can be omitted in tests
// without guarding every call site.
type Handle struct {
	log   logr.Logger
	meter metric.Meter

	nodes       atomic.Int64
	ttProbes    atomic.Int64
	ttHits      atomic.Int64
	ttProbeFail atomic.Int64
	ttStores    atomic.Int64
	ttStoreFail atomic.Int64
	cutoffs     atomic.Int64
	researches  atomic.Int64
	nullMoves   atomic.Int64
	lmrHits     atomic.Int64
	iidTriggers atomic.Int64
	workerPanic atomic.Int64

	ttProbeCounter metric.Int64Counter
	ttHitCounter   metric.Int64Counter
	nodeCounter    metric.Int64Counter
	panicCounter   metric.Int64Counter
}

// New creates a Handle that logs through log and records instruments
// against meter. Either may be its respective zero value (a discard
// logger / noop meter), in which case the corresponding signal is simply
// dropped by that library's own no-op implementation.
func New(log logr.Logger, meter metric.Meter) *Handle {
	h := &Handle{log: log, meter: meter}
	if meter != nil {
		h.ttProbeCounter, _ = meter.Int64Counter("shogi.tt.probes")
		h.ttHitCounter, _ = meter.Int64Counter("shogi.tt.hits")
		h.nodeCounter, _ = meter.Int64Counter("shogi.search.nodes")
		h.panicCounter, _ = meter.Int64Counter("shogi.search.worker_panics")
	}
	return h
}

func (h *Handle) IncTTHit() {
	if h == nil {
		return
	}
	h.ttProbes.Add(1)
	h.ttHits.Add(1)
	if h.ttProbeCounter != nil {
		h.ttProbeCounter.Add(context.Background(), 1)
	}
	if h.ttHitCounter != nil {
		h.ttHitCounter.Add(context.Background(), 1)
	}
}

func (h *Handle) IncTTProbeFail() {
	if h == nil {
		return
	}
	h.ttProbes.Add(1)
	h.ttProbeFail.Add(1)
	if h.ttProbeCounter != nil {
		h.ttProbeCounter.Add(context.Background(), 1)
	}
}

func (h *Handle) IncTTStore() {
	if h == nil {
		return
	}
	h.ttStores.Add(1)
}

func (h *Handle) IncTTStoreFail() {
	if h == nil {
		return
	}
	h.ttStoreFail.Add(1)
}

func (h *Handle) IncCutoff() {
	if h == nil {
		return
	}
	h.cutoffs.Add(1)
}

func (h *Handle) IncResearch() {
	if h == nil {
		return
	}
	h.researches.Add(1)
}

func (h *Handle) IncNullMovePrune() {
	if h == nil {
		return
	}
	h.nullMoves.Add(1)
}

func (h *Handle) IncLMR() {
	if h == nil {
		return
	}
	h.lmrHits.Add(1)
}

func (h *Handle) IncIID() {
	if h == nil {
		return
	}
	h.iidTriggers.Add(1)
}

// IncWorkerPanic records a recovered worker panic, both as a counter and
// an immediate error log line, since this is always worth surfacing.
func (h *Handle) IncWorkerPanic(workerID int, recovered any) {
	if h == nil {
		return
	}
	h.workerPanic.Add(1)
	if h.panicCounter != nil {
		h.panicCounter.Add(context.Background(), 1, metric.WithAttributes())
	}
	h.log.Error(nil, "worker recovered from panic", "worker", workerID, "panic", recovered)
}

// AddNodes records n additional visited nodes.
func (h *Handle) AddNodes(n int64) {
	if h == nil {
		return
	}
	h.nodes.Add(n)
	if h.nodeCounter != nil {
		h.nodeCounter.Add(context.Background(), n)
	}
}

// Snapshot is a consistent-enough (relaxed-ordering) point-in-time read of
// every counter, suitable for one `info string` or log line.
type Snapshot struct {
	Nodes       int64
	TTProbes    int64
	TTHits      int64
	TTProbeFail int64
	TTStores    int64
	TTStoreFail int64
	Cutoffs     int64
	Researches  int64
	NullMoves   int64
	LMRHits     int64
	IIDTriggers int64
	WorkerPanic int64
}

func (h *Handle) Snapshot() Snapshot {
	if h == nil {
		return Snapshot{}
	}
	return Snapshot{
		Nodes:       h.nodes.Load(),
		TTProbes:    h.ttProbes.Load(),
		TTHits:      h.ttHits.Load(),
		TTProbeFail: h.ttProbeFail.Load(),
		TTStores:    h.ttStores.Load(),
		TTStoreFail: h.ttStoreFail.Load(),
		Cutoffs:     h.cutoffs.Load(),
		Researches:  h.researches.Load(),
		NullMoves:   h.nullMoves.Load(),
		LMRHits:     h.lmrHits.Load(),
		IIDTriggers: h.iidTriggers.Load(),
		WorkerPanic: h.workerPanic.Load(),
	}
}

// LogSummary emits a human-readable summary line through the handle's
// logger, formatting large counters with go-humanize.
func (h *Handle) LogSummary() {
	if h == nil {
		return
	}
	s := h.Snapshot()
	h.log.Info("search diagnostics",
		"nodes", humanize.Comma(s.Nodes),
		"ttHitRate", ttHitRate(s),
		"ttStoreFail", humanize.Comma(s.TTStoreFail),
		"cutoffs", humanize.Comma(s.Cutoffs),
		"researches", humanize.Comma(s.Researches),
		"nullMovePrunes", humanize.Comma(s.NullMoves),
		"lmrHits", humanize.Comma(s.LMRHits),
		"iidTriggers", humanize.Comma(s.IIDTriggers),
		"workerPanics", humanize.Comma(s.WorkerPanic),
	)
}

func ttHitRate(s Snapshot) string {
	if s.TTProbes == 0 {
		return "0%"
	}
	pct := float64(s.TTHits) / float64(s.TTProbes) * 100
	return humanize.FormatFloat("#.##", pct) + "%"
}
