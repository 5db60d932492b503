package engine

import (
	"context"
	"errors"
	"testing"

	"ponder-engine/rules"
)

const kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

// minimax is the same search without pruning.
func minimax(pos *rules.Position, depth int, maximizing bool) int32 {
	moves := pos.LegalMoves()
	status := pos.ClassifyLegal(moves)
	if depth == 0 || status.IsTerminal() {
		return EvaluateStatus(pos, status)
	}
	best := Infinity
	if maximizing {
		best = -Infinity
	}
	for _, m := range moves {
		score := minimax(pos.Apply(m), depth-1, !maximizing)
		if better(score, best, maximizing) {
			best = score
		}
	}
	return best
}

func search(t *testing.T, pos *rules.Position, depth int) Line {
	t.Helper()
	line, err := NewSearcher().Search(context.Background(), pos, depth, -Infinity, Infinity, pos.WhiteToMove())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	return line
}

func TestSearchIsDeterministic(t *testing.T) {
	for _, fen := range []string{rules.Startpos, kiwipete} {
		pos := parse(t, fen)
		a := search(t, pos, 2)
		b := search(t, pos, 2)
		if a.Score != b.Score || !a.Variation.Equal(b.Variation) {
			t.Fatalf("%s: searches differ: %d %v vs %d %v", fen, a.Score, a.Variation, b.Score, b.Variation)
		}
		if len(a.Variation) != 2 {
			t.Fatalf("%s: expected a two move line, got %v", fen, a.Variation)
		}
	}
}

func TestSearchDepthOneMatchesEvaluator(t *testing.T) {
	fens := []string{
		rules.Startpos,
		kiwipete,
		"r1bqkbnr/pppp1ppp/2n5/4p3/3PP3/5N2/PPP2PPP/RNBQKB1R b KQkq - 0 3",
	}
	for _, fen := range fens {
		pos := parse(t, fen)
		maximizing := pos.WhiteToMove()

		var want rules.Move
		wantScore := Infinity
		if maximizing {
			wantScore = -Infinity
		}
		for _, m := range orderMoves(pos, pos.LegalMoves()) {
			if score := Evaluate(pos.Apply(m)); better(score, wantScore, maximizing) {
				want, wantScore = m, score
			}
		}

		got := search(t, pos, 1)
		if got.Score != wantScore || !got.Variation[0].Equal(want) {
			t.Fatalf("%s: depth 1 chose %v (%d), evaluator prefers %v (%d)", fen, got.Variation[0], got.Score, want, wantScore)
		}
	}
}

func TestAlphaBetaMatchesMinimax(t *testing.T) {
	cases := []struct {
		fen   string
		depth int
	}{
		{"4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", 4},
		{"r1bqkbnr/pppp1ppp/2n5/4p3/3PP3/5N2/PPP2PPP/RNBQKB1R b KQkq - 0 3", 3},
		{kiwipete, 2},
	}
	for _, tc := range cases {
		pos := parse(t, tc.fen)
		want := minimax(pos, tc.depth, pos.WhiteToMove())
		s := NewSearcher()
		got, err := s.Search(context.Background(), pos, tc.depth, -Infinity, Infinity, pos.WhiteToMove())
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if got.Score != want {
			t.Fatalf("%s depth %d: alpha-beta %d, minimax %d", tc.fen, tc.depth, got.Score, want)
		}
		if s.Stats.BetaCutoffs == 0 {
			t.Fatalf("%s depth %d: expected some cutoffs", tc.fen, tc.depth)
		}
	}
}

func TestSearchFindsMateInOne(t *testing.T) {
	pos := parse(t, "7k/6pp/6Q1/8/8/2B5/8/6K1 w - - 0 1")
	line := search(t, pos, 1)
	if line.Score != MaxScore || line.Variation[0].String() != "g6g7" {
		t.Fatalf("expected g6g7 mate, got %v (%d)", line.Variation, line.Score)
	}
}

func TestSearchTerminalRoot(t *testing.T) {
	pos := parse(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	line := search(t, pos, 3)
	if line.Score != DrawScore || len(line.Variation) != 0 {
		t.Fatalf("stalemate: expected empty draw line, got %v (%d)", line.Variation, line.Score)
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSearcher().Search(ctx, rules.StartingPosition(), 4, -Infinity, Infinity, true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOrderMovesCapturesFirst(t *testing.T) {
	pos := parse(t, kiwipete)
	ordered := orderMoves(pos, pos.LegalMoves())
	seenQuiet := false
	var last uint16 = 0xffff
	for _, m := range ordered {
		if !m.IsCapture() {
			seenQuiet = true
			continue
		}
		if seenQuiet {
			t.Fatalf("capture %v ordered after a quiet move", m)
		}
		if s := scoreMove(pos, m); s > last {
			t.Fatalf("capture %v out of order", m)
		} else {
			last = s
		}
	}
}
