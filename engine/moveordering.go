package engine

import (
	"sort"

	"ponder-engine/rules"
)

// Most Valuable Victim - Least Valuable Aggressor; used to score & sort captures
var mvvLva [7][7]uint16 = [7][7]uint16{
	{0, 0, 0, 0, 0, 0, 0},
	{0, 14, 13, 12, 11, 10, 0}, // victim Pawn
	{0, 24, 23, 22, 21, 20, 0}, // victim Knight
	{0, 34, 33, 32, 31, 30, 0}, // victim Bishop
	{0, 44, 43, 42, 41, 40, 0}, // victim Rook
	{0, 54, 53, 52, 51, 50, 0}, // victim Queen
	{0, 0, 0, 0, 0, 0, 0},      // victim King
}

const (
	goodCaptureOffset uint16 = 15000
	badCaptureOffset  uint16 = 5000
)

// scoreMove ranks captures that do not lose material by SEE above the ones
// that do, each group by MVV-LVA.
func scoreMove(p *rules.Position, m rules.Move) uint16 {
	if !m.IsCapture() {
		return 0
	}
	if see(p, m) < 0 {
		return badCaptureOffset + mvvLva[m.Captured][m.Piece]
	}
	return goodCaptureOffset + mvvLva[m.Captured][m.Piece]
}

// orderMoves puts captures first. Quiet moves keep the generator's order, so
// the result only depends on the input.
func orderMoves(p *rules.Position, moves []rules.Move) []rules.Move {
	type scored struct {
		move  rules.Move
		score uint16
	}
	list := make([]scored, len(moves))
	for i, m := range moves {
		list[i] = scored{m, scoreMove(p, m)}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})
	ordered := make([]rules.Move, len(list))
	for i := range list {
		ordered[i] = list[i].move
	}
	return ordered
}
