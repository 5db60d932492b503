package engine

import (
	"context"
	"fmt"

	"ponder-engine/rules"
)

// Hooks are optional callbacks fired by Deepen on the searching goroutine.
type Hooks struct {
	// Exploring is called after each root move is searched, with the move's
	// exact score and line at that depth.
	Exploring func(depth int, move rules.Move, line Line)
	// RootMoveDone is called after Exploring; done counts from 1 to total.
	RootMoveDone func(depth, done, total int)
	// DepthComplete receives the best line of a fully searched depth.
	DepthComplete func(depth int, best Line)
}

func (h Hooks) exploring(depth int, m rules.Move, line Line) {
	if h.Exploring != nil {
		h.Exploring(depth, m, line)
	}
}

func (h Hooks) rootMoveDone(depth, done, total int) {
	if h.RootMoveDone != nil {
		h.RootMoveDone(depth, done, total)
	}
}

func (h Hooks) depthComplete(depth int, best Line) {
	if h.DepthComplete != nil {
		h.DepthComplete(depth, best)
	}
}

// Report is the outcome of Deepen.
type Report struct {
	Move      rules.Move
	HasMove   bool
	Score     int32
	Variation Variation
	// Depth is the deepest fully searched depth, 0 when nothing was searched.
	Depth int
	// Terminal is set when the root has no move to play.
	Terminal bool
	// Forced is set when the root had a single legal move.
	Forced bool
	Status rules.Status
	Stats  Stats
}

// Deepen searches pos at depths 1..maxDepth. At every depth each root move is
// searched with a full window so its score is exact; the best of the depth is
// the first move with the best score.
//
// A terminal root returns no move. A single legal move is returned straight
// away, scored by the evaluator. If ctx is cancelled, the report of the deepest
// completed depth is returned along with ctx.Err().
func (s *Searcher) Deepen(ctx context.Context, pos *rules.Position, maxDepth int, hooks Hooks) (Report, error) {
	if maxDepth < 1 {
		return Report{}, fmt.Errorf("%w: %d", ErrInvalidDepth, maxDepth)
	}
	s.ResetStats()

	moves := pos.LegalMoves()
	status := pos.ClassifyLegal(moves)
	rep := Report{Status: status}

	if status.IsTerminal() {
		rep.Terminal = true
		rep.Score = EvaluateStatus(pos, status)
		return rep, nil
	}

	if len(moves) == 1 {
		m := moves[0]
		rep.Move, rep.HasMove, rep.Forced = m, true, true
		rep.Score = Evaluate(pos.Apply(m))
		rep.Variation = Variation{m}
		return rep, nil
	}

	maximizing := pos.WhiteToMove()
	ordered := orderMoves(pos, moves)

	for d := 1; d <= maxDepth; d++ {
		var best Line
		for i, m := range ordered {
			if err := ctx.Err(); err != nil {
				rep.Stats = s.Stats
				return rep, err
			}
			child, err := s.Search(ctx, pos.Apply(m), d-1, -Infinity, Infinity, !maximizing)
			if err != nil {
				rep.Stats = s.Stats
				return rep, err
			}
			line := Line{Score: child.Score, Variation: prepend(m, child.Variation)}
			hooks.exploring(d, m, line)

			if i == 0 || better(line.Score, best.Score, maximizing) {
				best = line
			}
			hooks.rootMoveDone(d, i+1, len(ordered))
		}

		rep.Move, rep.HasMove = best.Variation[0], true
		rep.Score = best.Score
		rep.Variation = best.Variation
		rep.Depth = d
		s.Stats.Depth = d
		hooks.depthComplete(d, best)
	}

	rep.Stats = s.Stats
	return rep, nil
}
