// Command shogi-usi runs the engine as a USI protocol handler reading
// commands from stdin and writing responses to stdout, the way a shogi GUI
// expects to drive an engine subprocess.
package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"github.com/go-logr/stdr"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/hailam/chessplay-shogi/internal/diagnostics"
	"github.com/hailam/chessplay-shogi/internal/engine"
	"github.com/hailam/chessplay-shogi/internal/storage"
	"github.com/hailam/chessplay-shogi/internal/usi"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashMB     = flag.Int("hash", 16, "transposition table size in MB")
	bookFile   = flag.String("book", "", "opening book file to load")
	debug      = flag.Bool("debug", false, "enable verbose diagnostics logging")
)

func main() {
	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	stdr.SetVerbosity(0)
	if *debug {
		stdr.SetVerbosity(1)
	}
	logger := stdr.New(log.Default())
	diag := diagnostics.New(logger, noop.NewMeterProvider().Meter("shogi"))

	hashSize := *hashMB
	prefs, err := storage.LoadPreferences()
	if err != nil {
		log.Printf("warning: could not load preferences: %v", err)
	} else if v, ok := prefs.Get("USI_Hash"); ok {
		if f, ok := v.(float64); ok && f > 0 {
			hashSize = int(f)
		}
	}

	eng := engine.NewEngine(hashSize, diag)

	book := *bookFile
	if book == "" {
		if v, ok := prefs.Get("BookFile"); ok {
			if s, ok := v.(string); ok {
				book = s
			}
		}
	}
	if book != "" {
		if err := eng.LoadBook(book); err != nil {
			log.Printf("warning: could not load opening book %s: %v", book, err)
		}
	}

	protocol := usi.New(eng, os.Stdout)
	if err := protocol.Run(os.Stdin); err != nil {
		log.Fatal(err)
	}

	diag.LogSummary()
}
