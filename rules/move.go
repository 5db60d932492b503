package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

// PieceType is a colorless piece kind. The numbering follows dragontoothmg so
// values can be used directly as table indexes.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceLetters = [7]byte{'-', 'p', 'n', 'b', 'r', 'q', 'k'}

func (pt PieceType) String() string {
	if int(pt) >= len(pieceLetters) {
		return "?"
	}
	return string(pieceLetters[pt])
}

// Color is the owner of a piece. White is the first player.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == White {
		return "w"
	}
	return "b"
}

// Other returns the opposing color.
func (c Color) Other() Color { return 1 - c }

// Square is a board index with a1 = 0, h1 = 7 and h8 = 63.
type Square uint8

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }

func (s Square) String() string {
	return string([]byte{'a' + byte(s.File()), '1' + byte(s.Rank())})
}

// ErrIllegalMove is returned when a move string does not name a legal move.
var ErrIllegalMove = errors.New("illegal move")

// Move is a legal transition produced by a Position. Two moves are equal when
// their canonical (UCI) notation is equal.
type Move struct {
	raw dragontoothmg.Move

	Piece     PieceType
	Color     Color
	From      Square
	To        Square
	Captured  PieceType
	Promotion PieceType
}

// IsZero reports whether m is the empty move.
func (m Move) IsZero() bool { return m.raw == 0 && m.Piece == NoPieceType }

// IsCapture reports whether the move removes an enemy piece, en passant included.
func (m Move) IsCapture() bool { return m.Captured != NoPieceType }

// String returns the UCI long algebraic form, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	if m.IsZero() {
		return "0000"
	}
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPieceType {
		s += m.Promotion.String()
	}
	return s
}

// Equal compares moves by canonical notation.
func (m Move) Equal(o Move) bool { return m.String() == o.String() }

// ParseMove finds the legal move of p written in UCI notation.
func (p *Position) ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range p.LegalMoves() {
		if m.String() == s {
			return m, nil
		}
	}
	return Move{}, fmt.Errorf("%w: %q in %s", ErrIllegalMove, s, p.FEN())
}

// newMove decodes a dragontoothmg move against the board it was generated for.
func newMove(b *dragontoothmg.Board, dm dragontoothmg.Move) Move {
	us, them := b.White, b.Black
	color := White
	if !b.Wtomove {
		us, them = b.Black, b.White
		color = Black
	}
	m := Move{
		raw:       dm,
		Color:     color,
		From:      Square(dm.From()),
		To:        Square(dm.To()),
		Promotion: PieceType(dm.Promote()),
	}
	m.Piece = pieceAt(&us, m.From)
	m.Captured = pieceAt(&them, m.To)
	if m.Captured == NoPieceType && m.Piece == Pawn && m.From.File() != m.To.File() {
		// en passant: the victim is not on the destination square
		m.Captured = Pawn
	}
	return m
}

func pieceAt(bb *dragontoothmg.Bitboards, sq Square) PieceType {
	mask := uint64(1) << sq
	switch {
	case bb.All&mask == 0:
		return NoPieceType
	case bb.Pawns&mask != 0:
		return Pawn
	case bb.Knights&mask != 0:
		return Knight
	case bb.Bishops&mask != 0:
		return Bishop
	case bb.Rooks&mask != 0:
		return Rook
	case bb.Queens&mask != 0:
		return Queen
	case bb.Kings&mask != 0:
		return King
	}
	return NoPieceType
}
