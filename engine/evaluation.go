package engine

import (
	"math/bits"

	"ponder-engine/rules"
)

const (
	MaxScore  int32 = 32500
	DrawScore int32 = 0
)

// Board indexing and bit masks for evaluation
var FlipView = [64]int{
	56, 57, 58, 59, 60, 61, 62, 63,
	48, 49, 50, 51, 52, 53, 54, 55,
	40, 41, 42, 43, 44, 45, 46, 47,
	32, 33, 34, 35, 36, 37, 38, 39,
	24, 25, 26, 27, 28, 29, 30, 31,
	16, 17, 18, 19, 20, 21, 22, 23,
	8, 9, 10, 11, 12, 13, 14, 15,
	0, 1, 2, 3, 4, 5, 6, 7,
}

var PieceValue = [7]int{0, 100, 320, 330, 500, 900, 20000}

// PSQT is indexed by piece type, then square from White's side (a1 first).
// Black reads the mirrored square through FlipView.
var PSQT = [7][64]int{
	{},
	// Pawn
	{
		0, 0, 0, 0, 0, 0, 0, 0,
		5, 10, 10, -20, -20, 10, 10, 5,
		5, -5, -10, 0, 0, -10, -5, 5,
		0, 0, 0, 20, 20, 0, 0, 0,
		5, 5, 10, 25, 25, 10, 5, 5,
		10, 10, 20, 30, 30, 20, 10, 10,
		50, 50, 50, 50, 50, 50, 50, 50,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	// Knight
	{
		-50, -40, -30, -30, -30, -30, -40, -50,
		-40, -20, 0, 5, 5, 0, -20, -40,
		-30, 5, 10, 15, 15, 10, 5, -30,
		-30, 0, 15, 20, 20, 15, 0, -30,
		-30, 5, 15, 20, 20, 15, 5, -30,
		-30, 0, 10, 15, 15, 10, 0, -30,
		-40, -20, 0, 0, 0, 0, -20, -40,
		-50, -40, -30, -30, -30, -30, -40, -50,
	},
	// Bishop
	{
		-20, -10, -10, -10, -10, -10, -10, -20,
		-10, 5, 0, 0, 0, 0, 5, -10,
		-10, 10, 10, 10, 10, 10, 10, -10,
		-10, 0, 10, 10, 10, 10, 0, -10,
		-10, 5, 5, 10, 10, 5, 5, -10,
		-10, 0, 5, 10, 10, 5, 0, -10,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-20, -10, -10, -10, -10, -10, -10, -20,
	},
	// Rook
	{
		0, 0, 0, 5, 5, 0, 0, 0,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		5, 10, 10, 10, 10, 10, 10, 5,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	// Queen
	{
		-20, -10, -10, -5, -5, -10, -10, -20,
		-10, 0, 5, 0, 0, 0, 0, -10,
		-10, 5, 5, 5, 5, 5, 0, -10,
		0, 0, 5, 5, 5, 5, 0, -5,
		-5, 0, 5, 5, 5, 5, 0, -5,
		-10, 0, 5, 5, 5, 5, 0, -10,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-20, -10, -10, -5, -5, -10, -10, -20,
	},
	// King
	{
		20, 30, 10, 0, 0, 10, 30, 20,
		20, 20, 0, 0, 0, 0, 20, 20,
		-10, -20, -20, -20, -20, -20, -20, -10,
		-20, -30, -30, -40, -40, -30, -30, -20,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
	},
}

// Evaluate scores p from White's point of view.
func Evaluate(p *rules.Position) int32 {
	return EvaluateStatus(p, p.Classify())
}

// EvaluateStatus is Evaluate for a position whose status is already known.
func EvaluateStatus(p *rules.Position, status rules.Status) int32 {
	switch {
	case status == rules.Checkmate:
		if p.WhiteToMove() {
			return -MaxScore
		}
		return MaxScore
	case status.IsDraw():
		return DrawScore
	}
	return int32(countMaterial(p) + countPieceTables(p))
}

func countMaterial(p *rules.Position) (score int) {
	w, b := p.Bitboards(rules.White), p.Bitboards(rules.Black)
	for pt, bb := range pieceSets(&w) {
		score += PieceValue[pt] * bits.OnesCount64(bb)
	}
	for pt, bb := range pieceSets(&b) {
		score -= PieceValue[pt] * bits.OnesCount64(bb)
	}
	return score
}

func countPieceTables(p *rules.Position) (score int) {
	w, b := p.Bitboards(rules.White), p.Bitboards(rules.Black)
	for pt, bb := range pieceSets(&w) {
		for x := bb; x != 0; x &= x - 1 {
			score += PSQT[pt][bits.TrailingZeros64(x)]
		}
	}
	for pt, bb := range pieceSets(&b) {
		for x := bb; x != 0; x &= x - 1 {
			revView := FlipView[bits.TrailingZeros64(x)]
			score -= PSQT[pt][revView]
		}
	}
	return score
}

func pieceSets(bb *rules.Bitboards) [7]uint64 {
	return [7]uint64{
		rules.Pawn:   bb.Pawns,
		rules.Knight: bb.Knights,
		rules.Bishop: bb.Bishops,
		rules.Rook:   bb.Rooks,
		rules.Queen:  bb.Queens,
		rules.King:   bb.Kings,
	}
}
