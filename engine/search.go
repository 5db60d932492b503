package engine

import (
	"context"
	"errors"
	"fmt"

	"ponder-engine/rules"
)

// Infinity bounds every reachable score, mates included.
const Infinity = MaxScore + 1

// ErrInvalidDepth is returned for search depths below one.
var ErrInvalidDepth = errors.New("invalid search depth")

// The context is polled once every checkInterval nodes.
const checkInterval = 1024

// Line is a score together with the variation that leads to it.
type Line struct {
	Score     int32
	Variation Variation
}

// Searcher runs minimax searches. It is not safe for concurrent use; the
// counters in Stats accumulate until the next Deepen or ResetStats.
type Searcher struct {
	Stats Stats

	ctx     context.Context
	stopped bool
}

func NewSearcher() *Searcher {
	return &Searcher{}
}

func (s *Searcher) ResetStats() {
	s.Stats = Stats{}
}

// Search runs a depth-limited minimax with alpha-beta pruning from pos. Scores
// are from White's point of view; maximizing is true when the side to move at
// pos should maximize. Captures are searched first and ties go to the earliest
// move, so the same input always yields the same line.
//
// When ctx is cancelled the partial result is dropped and ctx.Err() returned.
func (s *Searcher) Search(ctx context.Context, pos *rules.Position, depth int, alpha, beta int32, maximizing bool) (Line, error) {
	if depth < 0 {
		return Line{}, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	s.ctx = ctx
	s.stopped = false
	if err := ctx.Err(); err != nil {
		return Line{}, err
	}
	line := s.alphabeta(pos, depth, alpha, beta, maximizing)
	if s.stopped {
		return Line{}, ctx.Err()
	}
	return line, nil
}

func (s *Searcher) alphabeta(pos *rules.Position, depth int, alpha, beta int32, maximizing bool) Line {
	s.Stats.Nodes++
	if s.Stats.Nodes%checkInterval == 0 && s.ctx.Err() != nil {
		s.stopped = true
	}
	if s.stopped {
		return Line{}
	}

	moves := pos.LegalMoves()
	status := pos.ClassifyLegal(moves)
	if depth == 0 || status.IsTerminal() {
		s.Stats.LeafEvals++
		return Line{Score: EvaluateStatus(pos, status)}
	}

	bestScore := Infinity
	if maximizing {
		bestScore = -Infinity
	}
	var bestMove rules.Move
	var bestChild Variation

	for _, m := range orderMoves(pos, moves) {
		child := s.alphabeta(pos.Apply(m), depth-1, alpha, beta, !maximizing)
		if s.stopped {
			return Line{}
		}

		if better(child.Score, bestScore, maximizing) {
			bestScore = child.Score
			bestMove = m
			bestChild = child.Variation
		}
		if maximizing {
			alpha = Max32(alpha, child.Score)
		} else {
			beta = Min32(beta, child.Score)
		}

		if beta <= alpha {
			s.Stats.BetaCutoffs++
			break
		}
	}

	return Line{Score: bestScore, Variation: prepend(bestMove, bestChild)}
}
