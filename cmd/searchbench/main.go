package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/rs/zerolog/log"

	"ponder-engine/config"
	"ponder-engine/engine"
	"ponder-engine/rules"
)

func main() {
	depthFlag := flag.Int("depth", 4, "search depth in plies")
	repeatFlag := flag.Int("repeat", 1, "number of searches to run")
	fenFlag := flag.String("fen", "", "FEN to search (empty = startpos)")
	cpuProfile := flag.Bool("cpuprofile", false, "write a CPU profile to the working directory")
	memProfile := flag.Bool("memprofile", false, "write a heap profile to the working directory")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if err := config.SetupLogging(cfg.Logs, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}

	if *depthFlag <= 0 {
		log.Fatal().Int("depth", *depthFlag).Msg("depth must be positive")
	}

	switch {
	case *cpuProfile:
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case *memProfile:
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	fen := rules.Startpos
	if *fenFlag != "" {
		fen = *fenFlag
	}
	pos, err := rules.ParseFEN(fen)
	if err != nil {
		log.Fatal().Err(err).Str("fen", fen).Msg("bad position")
	}

	fmt.Printf("searchbench: fen=%q depth=%d repeat=%d\n", fen, *depthFlag, *repeatFlag)

	s := engine.NewSearcher()
	hooks := engine.Hooks{
		DepthComplete: func(depth int, best engine.Line) {
			log.Debug().Int("depth", depth).Int32("score", best.Score).Stringer("pv", best.Variation).Msg("depth complete")
		},
	}

	startAll := time.Now()
	for i := 0; i < *repeatFlag; i++ {
		iterStart := time.Now()
		rep, err := s.Deepen(context.Background(), pos, *depthFlag, hooks)
		if err != nil {
			log.Fatal().Err(err).Msg("search failed")
		}
		elapsed := time.Since(iterStart)
		move := "(none)"
		if rep.HasMove {
			move = rep.Move.String()
		}
		fmt.Printf("iteration %d: bestmove %s score %s  %v  time=%v\n",
			i+1, move, engine.UCIScore(rep.Score, pos.WhiteToMove(), len(rep.Variation)), rep.Stats, elapsed)
	}
	fmt.Printf("total time: %v\n", time.Since(startAll))
}
