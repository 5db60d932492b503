package rules

import "github.com/dylhunn/dragontoothmg"

// Perft counts the leaf nodes of the legal move tree below p.
func Perft(p *Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	b := p.board
	return perftRec(&b, depth)
}

func perftRec(b *dragontoothmg.Board, depth int) uint64 {
	moves := b.GenerateLegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var nodes uint64
	for _, m := range moves {
		undo := b.Apply(m)
		nodes += perftRec(b, depth-1)
		undo()
	}
	return nodes
}

// PerftDivide returns the perft count below each root move, keyed by UCI notation.
func PerftDivide(p *Position, depth int) map[string]uint64 {
	result := make(map[string]uint64)
	if depth <= 0 {
		return result
	}
	for _, m := range p.LegalMoves() {
		result[m.String()] = Perft(p.Apply(m), depth-1)
	}
	return result
}
