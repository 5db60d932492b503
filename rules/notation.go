package rules

import (
	"fmt"

	"github.com/notnil/chess"
)

// SAN renders line, played from p, in standard algebraic notation.
func SAN(p *Position, line []Move) ([]string, error) {
	opt, err := chess.FEN(p.FEN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	pos := chess.NewGame(opt).Position()
	out := make([]string, 0, len(line))
	for _, m := range line {
		cm, err := chess.UCINotation{}.Decode(pos, m.String())
		if err != nil {
			return out, fmt.Errorf("%w: %s: %v", ErrIllegalMove, m, err)
		}
		out = append(out, chess.AlgebraicNotation{}.Encode(pos, cm))
		pos = pos.Update(cm)
	}
	return out, nil
}
