package engine

import (
	"math/bits"

	"github.com/dylhunn/dragontoothmg"

	"ponder-engine/rules"
)

var seePieceValue = [7]int{
	rules.Pawn:   100,
	rules.Knight: 300,
	rules.Bishop: 300,
	rules.Rook:   500,
	rules.Queen:  900,
	rules.King:   5000,
}

var knightMasks, kingMasks [64]uint64

func init() {
	for sq := 0; sq < 64; sq++ {
		f, r := sq%8, sq/8
		for _, d := range [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}} {
			if onBoard(f+d[0], r+d[1]) {
				knightMasks[sq] |= 1 << uint((r+d[1])*8+f+d[0])
			}
		}
		for df := -1; df <= 1; df++ {
			for dr := -1; dr <= 1; dr++ {
				if (df != 0 || dr != 0) && onBoard(f+df, r+dr) {
					kingMasks[sq] |= 1 << uint((r+dr)*8+f+df)
				}
			}
		}
	}
}

func onBoard(f, r int) bool { return f >= 0 && f < 8 && r >= 0 && r < 8 }

// pawnAttackers returns the squares from which a pawn of color c attacks sq.
func pawnAttackers(sq uint8, c rules.Color) uint64 {
	bb := uint64(1) << sq
	const notA, notH = 0xfefefefefefefefe, 0x7f7f7f7f7f7f7f7f
	if c == rules.White {
		return (bb>>7)&notA | (bb>>9)&notH
	}
	return (bb<<9)&notA | (bb<<7)&notH
}

// attackersTo lists the pieces of both colors attacking sq given occupancy occ.
func attackersTo(sq uint8, occ uint64, white, black *rules.Bitboards) uint64 {
	diag := dragontoothmg.CalculateBishopMoveBitboard(sq, occ)
	orth := dragontoothmg.CalculateRookMoveBitboard(sq, occ)
	return pawnAttackers(sq, rules.White)&white.Pawns |
		pawnAttackers(sq, rules.Black)&black.Pawns |
		knightMasks[sq]&(white.Knights|black.Knights) |
		kingMasks[sq]&(white.Kings|black.Kings) |
		diag&(white.Bishops|white.Queens|black.Bishops|black.Queens) |
		orth&(white.Rooks|white.Queens|black.Rooks|black.Queens)
}

func leastValuable(set uint64, bb *rules.Bitboards) (uint64, rules.PieceType) {
	for _, c := range []struct {
		pieces uint64
		pt     rules.PieceType
	}{
		{bb.Pawns, rules.Pawn},
		{bb.Knights, rules.Knight},
		{bb.Bishops, rules.Bishop},
		{bb.Rooks, rules.Rook},
		{bb.Queens, rules.Queen},
		{bb.Kings, rules.King},
	} {
		if s := set & c.pieces; s != 0 {
			return 1 << uint(bits.TrailingZeros64(s)), c.pt
		}
	}
	return 0, rules.NoPieceType
}

// see is the static exchange evaluation of capture m: the material the mover
// nets if both sides keep recapturing on the target square with their least
// valuable attacker, each side free to stop. Quiet moves score 0.
func see(p *rules.Position, m rules.Move) int {
	if !m.IsCapture() {
		return 0
	}
	white, black := p.Bitboards(rules.White), p.Bitboards(rules.Black)
	occ := white.All | black.All
	to := uint8(m.To)

	if _, _, ok := p.PieceAt(m.To); !ok {
		// en passant: the captured pawn sits behind the target square
		if p.SideToMove() == rules.White {
			occ &^= 1 << (to - 8)
		} else {
			occ &^= 1 << (to + 8)
		}
	}

	var gain [32]int
	d := 0
	gain[0] = seePieceValue[m.Captured]
	side := p.SideToMove()
	attacker := m.Piece
	from := uint64(1) << uint8(m.From)

	for from != 0 && d < len(gain)-1 {
		d++
		side = side.Other()
		gain[d] = seePieceValue[attacker] - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}
		occ &^= from
		// sliders behind the piece that just captured join in
		attackers := attackersTo(to, occ, &white, &black) & occ
		own := &white
		if side == rules.Black {
			own = &black
		}
		from, attacker = leastValuable(attackers&own.All, own)
	}
	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}
