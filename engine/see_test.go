package engine

import (
	"testing"

	"ponder-engine/rules"
)

func seeOf(t *testing.T, fen, move string) int {
	t.Helper()
	pos := parse(t, fen)
	m, err := pos.ParseMove(move)
	if err != nil {
		t.Fatalf("parse move %s: %v", move, err)
	}
	return see(pos, m)
}

func TestSEE(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{"undefended pawn", "k7/8/8/3p4/8/8/8/K2R4 w - - 0 1", "d1d5", 100},
		{"pawn defends", "k7/8/4p3/3p4/8/8/8/K2R4 w - - 0 1", "d1d5", -400},
		{"even trade", "6k1/4q1p1/4n3/8/2B5/8/8/6K1 w - - 0 1", "c4e6", 0},
		{"battery behind rook", "k2r4/8/8/3p4/8/8/3R4/K2R4 w - - 0 1", "d2d5", 100},
		{"en passant", "k7/8/8/3pP3/8/8/8/6K1 w - d6 0 1", "e5d6", 100},
		{"quiet move", rules.Startpos, "e2e4", 0},
	}
	for _, tc := range cases {
		if got := seeOf(t, tc.fen, tc.move); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestLosingCapturesOrderedLast(t *testing.T) {
	// Rxd5 loses the rook to exd5, Bxa6 wins a knight for free.
	pos := parse(t, "k7/8/n3p3/3p4/8/8/8/K2R1B2 w - - 0 1")
	ordered := orderMoves(pos, pos.LegalMoves())
	if ordered[0].String() != "f1a6" {
		t.Fatalf("expected the winning capture first, got %v", ordered[0])
	}
	if ordered[1].String() != "d1d5" {
		t.Fatalf("expected the losing capture second, got %v", ordered[1])
	}
}
