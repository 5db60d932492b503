package engine

import (
	"strings"

	"github.com/samber/lo"

	"ponder-engine/rules"
)

// Variation is a line of play from some position, first move first.
type Variation []rules.Move

// Strings returns the moves in UCI notation.
func (v Variation) Strings() []string {
	return lo.Map(v, func(m rules.Move, _ int) string { return m.String() })
}

func (v Variation) String() string {
	return strings.Join(v.Strings(), " ")
}

// First returns the opening move of the line.
func (v Variation) First() (rules.Move, bool) {
	if len(v) == 0 {
		return rules.Move{}, false
	}
	return v[0], true
}

// Equal compares two lines move by move.
func (v Variation) Equal(o Variation) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if !v[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func prepend(m rules.Move, v Variation) Variation {
	line := make(Variation, 0, len(v)+1)
	line = append(line, m)
	return append(line, v...)
}
