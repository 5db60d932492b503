package rules

import "math/bits"

const fiftyMoveLimit = 100

const darkSquares uint64 = 0x55aa55aa55aa55aa

// Status classifies a position for the side to move.
type Status uint8

const (
	Ongoing Status = iota
	Check
	Checkmate
	Stalemate
	DrawInsufficientMaterial
	DrawRepetition
	DrawFiftyMove
)

var statusNames = [...]string{
	Ongoing:                  "ongoing",
	Check:                    "check",
	Checkmate:                "checkmate",
	Stalemate:                "stalemate",
	DrawInsufficientMaterial: "insufficient material",
	DrawRepetition:           "threefold repetition",
	DrawFiftyMove:            "fifty-move rule",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// IsTerminal reports whether the game is over.
func (s Status) IsTerminal() bool { return s >= Checkmate }

// IsDraw reports whether the game ended without a winner.
func (s Status) IsDraw() bool { return s >= Stalemate }

// Classify generates the legal moves of p and classifies it.
func (p *Position) Classify() Status {
	return p.ClassifyLegal(p.LegalMoves())
}

// ClassifyLegal classifies p given its already generated legal moves.
func (p *Position) ClassifyLegal(moves []Move) Status {
	inCheck := p.InCheck()
	if len(moves) == 0 {
		if inCheck {
			return Checkmate
		}
		return Stalemate
	}
	if p.HalfmoveClock() >= fiftyMoveLimit {
		return DrawFiftyMove
	}
	if p.InsufficientMaterial() {
		return DrawInsufficientMaterial
	}
	if p.Repetitions() >= 2 {
		return DrawRepetition
	}
	if inCheck {
		return Check
	}
	return Ongoing
}

// InsufficientMaterial reports bare kings, a single minor piece, or bishops that
// all stand on squares of one color.
func (p *Position) InsufficientMaterial() bool {
	w, b := p.board.White, p.board.Black
	if (w.Pawns | b.Pawns | w.Rooks | b.Rooks | w.Queens | b.Queens) != 0 {
		return false
	}
	minors := bits.OnesCount64(w.Knights | b.Knights | w.Bishops | b.Bishops)
	if minors <= 1 {
		return true
	}
	if (w.Knights | b.Knights) != 0 {
		return false
	}
	bishops := w.Bishops | b.Bishops
	return bishops&darkSquares == 0 || bishops&^darkSquares == 0
}

// Repetitions counts earlier occurrences of p in its history, looking back no
// further than the last irreversible move.
func (p *Position) Repetitions() int {
	h := p.Hash()
	n := 0
	window := p.HalfmoveClock()
	for q, ply := p.parent, 1; q != nil && ply <= window; q, ply = q.parent, ply+1 {
		if q.Hash() == h {
			n++
		}
	}
	return n
}
