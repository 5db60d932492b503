package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	goose "github.com/Oliverans/GooseEngineMG/goosemg"
	"github.com/pkg/profile"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"ponder-engine/rules"
)

func main() {
	fen := flag.String("fen", rules.Startpos, "FEN string (defaults to initial position)")
	depth := flag.Int("depth", 0, "Perft depth (required)")
	divide := flag.Bool("divide", false, "Print per-move node counts at root")
	repeat := flag.Int("repeat", 1, "Repeat perft N times and report aggregate (for steadier timings)")
	label := flag.String("label", "", "Optional label prefix for one-line output")
	crosscheck := flag.Bool("crosscheck", false, "Compare the node count with an independent move generator")
	cpuProf := flag.Bool("cpuprofile", false, "Write a CPU profile to the working directory")
	flag.Parse()

	if *depth <= 0 {
		fmt.Fprintln(os.Stderr, "-depth must be > 0")
		os.Exit(2)
	}

	pos, err := rules.ParseFEN(*fen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ParseFEN error: %v\n", err)
		os.Exit(2)
	}

	if *divide {
		div := rules.PerftDivide(pos, *depth)
		moves := maps.Keys(div)
		slices.Sort(moves)
		var sum uint64
		for _, m := range moves {
			fmt.Printf("%s: %d\n", m, div[m])
			sum += div[m]
		}
		fmt.Printf("Total: %d\n", sum)
		return
	}

	if *cpuProf {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	}

	var totalNodes uint64
	start := time.Now()
	for i := 0; i < *repeat; i++ {
		totalNodes += rules.Perft(pos, *depth)
	}
	elapsed := time.Since(start)
	nps := float64(totalNodes) / elapsed.Seconds()

	// Label Depth Nodes Time NPS
	fmt.Printf("%s \t%d \t\t%d \t\t%s \t%.0f\n", *label, *depth, totalNodes, elapsed, nps)

	if *crosscheck {
		board, err := goose.ParseFEN(*fen)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reference ParseFEN error: %v\n", err)
			os.Exit(2)
		}
		want := goose.Perft(board, *depth)
		got := totalNodes / uint64(*repeat)
		if got != want {
			fmt.Fprintf(os.Stderr, "crosscheck mismatch: %d nodes, reference %d\n", got, want)
			os.Exit(1)
		}
		fmt.Printf("crosscheck ok: %d nodes\n", want)
	}
}
