package engine

import "fmt"

// Stats collects counters for one search.
type Stats struct {
	Nodes       uint64
	BetaCutoffs uint64
	LeafEvals   uint64
	Depth       int
}

func (s Stats) String() string {
	return fmt.Sprintf("depth %d nodes %d cutoffs %d evals %d", s.Depth, s.Nodes, s.BetaCutoffs, s.LeafEvals)
}

// Lines renders the counters as UCI "info string" lines.
func (s Stats) Lines() []string {
	return []string{
		"info string Search statistics:",
		fmt.Sprintf("info string   Nodes: %d", s.Nodes),
		fmt.Sprintf("info string   Beta cutoffs: %d", s.BetaCutoffs),
		fmt.Sprintf("info string   Leaf evaluations: %d", s.LeafEvals),
	}
}
