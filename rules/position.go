package rules

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/dylhunn/dragontoothmg"
	"github.com/notnil/chess"
)

// Startpos is the FEN of the initial position.
const Startpos = dragontoothmg.Startpos

// ErrInvalidPosition is returned for FEN strings that do not describe a legal board.
var ErrInvalidPosition = errors.New("invalid position")

// Bitboards holds one color's piece sets, bit i set for square i.
type Bitboards = dragontoothmg.Bitboards

const (
	rank1Mask uint64 = 0x00000000000000ff
	rank8Mask uint64 = 0xff00000000000000
)

// Position is an immutable board snapshot. A Position remembers the position it
// was reached from so repetitions can be detected.
type Position struct {
	board  dragontoothmg.Board
	parent *Position
}

// StartingPosition returns the initial setup.
func StartingPosition() *Position {
	return &Position{board: dragontoothmg.ParseFen(Startpos)}
}

// ParseFEN validates fen and builds a Position from it.
func ParseFEN(fen string) (pos *Position, err error) {
	fen = strings.TrimSpace(fen)
	if _, err := chess.FEN(fen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	defer func() {
		if r := recover(); r != nil {
			pos = nil
			err = fmt.Errorf("%w: %v", ErrInvalidPosition, r)
		}
	}()
	board := dragontoothmg.ParseFen(fen)
	if err := validate(&board, strings.Fields(fen)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return &Position{board: board}, nil
}

func validate(b *dragontoothmg.Board, fields []string) error {
	if n := bits.OnesCount64(b.White.Kings); n != 1 {
		return fmt.Errorf("white has %d kings", n)
	}
	if n := bits.OnesCount64(b.Black.Kings); n != 1 {
		return fmt.Errorf("black has %d kings", n)
	}
	if (b.White.Pawns|b.Black.Pawns)&(rank1Mask|rank8Mask) != 0 {
		return errors.New("pawn on first or last rank")
	}
	flipped := *b
	flipped.Wtomove = !flipped.Wtomove
	if flipped.OurKingInCheck() {
		return errors.New("side not to move is in check")
	}
	if len(fields) < 4 {
		return errors.New("missing castling or en passant field")
	}
	if err := validateCastling(b, fields[2]); err != nil {
		return err
	}
	return validateEnPassant(b, fields[3])
}

// castlingSquares maps each castling right to its king and rook squares.
var castlingSquares = map[rune]struct {
	white      bool
	king, rook uint8
}{
	'K': {true, 4, 7},
	'Q': {true, 4, 0},
	'k': {false, 60, 63},
	'q': {false, 60, 56},
}

func validateCastling(b *dragontoothmg.Board, rights string) error {
	if rights == "-" {
		return nil
	}
	for _, r := range rights {
		sq, ok := castlingSquares[r]
		if !ok {
			return fmt.Errorf("unknown castling right %q", r)
		}
		own := &b.Black
		if sq.white {
			own = &b.White
		}
		if own.Kings&(1<<sq.king) == 0 || own.Rooks&(1<<sq.rook) == 0 {
			return fmt.Errorf("castling right %c without king and rook on their home squares", r)
		}
	}
	return nil
}

func validateEnPassant(b *dragontoothmg.Board, field string) error {
	if field == "-" {
		return nil
	}
	if len(field) != 2 || field[0] < 'a' || field[0] > 'h' {
		return fmt.Errorf("bad en passant square %q", field)
	}
	file := field[0] - 'a'
	occ := b.White.All | b.Black.All
	var target, pawn, behind uint8
	var enemyPawns uint64
	switch {
	case b.Wtomove && field[1] == '6':
		target = 40 + file
		pawn, behind = target-8, target+8
		enemyPawns = b.Black.Pawns
	case !b.Wtomove && field[1] == '3':
		target = 16 + file
		pawn, behind = target+8, target-8
		enemyPawns = b.White.Pawns
	default:
		return fmt.Errorf("en passant square %s on the wrong rank", field)
	}
	if enemyPawns&(1<<pawn) == 0 {
		return fmt.Errorf("no pawn to capture en passant on %s", field)
	}
	if occ&(1<<target|1<<behind) != 0 {
		return fmt.Errorf("en passant square %s or the square behind it is occupied", field)
	}
	return nil
}

// FEN renders the position.
func (p *Position) FEN() string {
	b := p.board
	return b.ToFen()
}

func (p *Position) String() string { return p.FEN() }

// Hash is the Zobrist key of the position.
func (p *Position) Hash() uint64 {
	b := p.board
	return b.Hash()
}

// WhiteToMove reports whether the first player is to move.
func (p *Position) WhiteToMove() bool { return p.board.Wtomove }

// SideToMove returns the color to move.
func (p *Position) SideToMove() Color {
	if p.board.Wtomove {
		return White
	}
	return Black
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	b := p.board
	return b.OurKingInCheck()
}

// HalfmoveClock is the number of plies since the last capture or pawn move.
func (p *Position) HalfmoveClock() int { return int(p.board.Halfmoveclock) }

// Bitboards returns the piece sets of color c.
func (p *Position) Bitboards(c Color) Bitboards {
	if c == White {
		return p.board.White
	}
	return p.board.Black
}

// PieceAt returns the piece standing on sq, if any.
func (p *Position) PieceAt(sq Square) (PieceType, Color, bool) {
	if pt := pieceAt(&p.board.White, sq); pt != NoPieceType {
		return pt, White, true
	}
	if pt := pieceAt(&p.board.Black, sq); pt != NoPieceType {
		return pt, Black, true
	}
	return NoPieceType, White, false
}

// LegalMoves lists every legal move in generator order.
func (p *Position) LegalMoves() []Move {
	b := p.board
	raw := b.GenerateLegalMoves()
	moves := make([]Move, len(raw))
	for i := range raw {
		moves[i] = newMove(&b, raw[i])
	}
	return moves
}

// Apply returns the position reached by playing m, which must be one of
// p.LegalMoves().
func (p *Position) Apply(m Move) *Position {
	child := &Position{board: p.board, parent: p}
	child.board.Apply(m.raw)
	return child
}
