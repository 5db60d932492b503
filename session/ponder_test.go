package session

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"ponder-engine/rules"
)

func populate(t *testing.T, s *Session, pos *rules.Position, depth int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.Populate(ctx, pos, depth); err != nil {
		t.Fatalf("populate: %v", err)
	}
}

func afterE4(t *testing.T) *rules.Position {
	t.Helper()
	p := rules.StartingPosition()
	m, err := p.ParseMove("e2e4")
	if err != nil {
		t.Fatalf("parse move: %v", err)
	}
	return p.Apply(m)
}

func TestPonderCacheMatchesLiveSearch(t *testing.T) {
	s := New()
	defer s.Close()

	const depth = 2
	pos := afterE4(t)
	populate(t, s, pos, depth)

	moves := pos.LegalMoves()
	if n := len(s.PonderSnapshot()); n != len(moves) {
		t.Fatalf("expected %d cached replies, got %d", len(moves), n)
	}
	for _, m := range moves {
		child := pos.Apply(m)
		cached, ok := s.LookupPonder(child)
		if !ok {
			t.Fatalf("no cached reply after %v", m)
		}
		live := wait(t, s.Submit(child, depth, Live))
		if live.Outcome != Found || !cached.Equal(live.Move) {
			t.Fatalf("after %v: cached %v, live search %v (%v)", m, cached, live.Move, live.Outcome)
		}
	}
}

func TestPonderSnapshotSorted(t *testing.T) {
	s := New()
	defer s.Close()

	pos := afterE4(t)
	populate(t, s, pos, 1)
	keys := s.PonderSnapshot()
	if !sort.StringsAreSorted(keys) {
		t.Fatalf("snapshot not sorted: %v", keys)
	}
	want := map[string]bool{}
	for _, m := range pos.LegalMoves() {
		want[ponderKey(pos.Apply(m))] = true
	}
	for _, k := range keys {
		if !want[k] {
			t.Fatalf("unexpected key %q", k)
		}
	}
}

func TestPonderRestartReplacesCache(t *testing.T) {
	s := New()
	defer s.Close()

	first := afterE4(t)
	populate(t, s, first, 1)
	gen := s.PonderGeneration()

	second := rules.StartingPosition()
	populate(t, s, second, 1)
	if s.PonderGeneration() <= gen {
		t.Fatalf("generation did not advance")
	}

	want := map[string]bool{}
	for _, m := range second.LegalMoves() {
		want[ponderKey(second.Apply(m))] = true
	}
	keys := s.PonderSnapshot()
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for _, k := range keys {
		if !want[k] {
			t.Fatalf("stale key %q survived restart", k)
		}
	}
	for _, m := range first.LegalMoves() {
		if _, ok := s.LookupPonder(first.Apply(m)); ok {
			t.Fatalf("reply for the old position %v still cached", m)
		}
	}
}

func TestStopPondering(t *testing.T) {
	s := New()
	defer s.Close()

	pos := parse(t, kiwipete)
	if err := s.StartPondering(pos, 5); err != nil {
		t.Fatalf("start pondering: %v", err)
	}
	s.StopPondering()
	if keys := s.PonderSnapshot(); len(keys) != 0 {
		t.Fatalf("cache not cleared: %v", keys)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.WaitPondering(ctx); err != nil {
		t.Fatalf("stopped generation should resolve: %v", err)
	}
	if n := s.Pending(); n != 0 {
		t.Fatalf("expected no pending requests, got %d", n)
	}
}

func TestPonderTerminalPosition(t *testing.T) {
	s := New()
	defer s.Close()

	populate(t, s, parse(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"), 2)
	if keys := s.PonderSnapshot(); len(keys) != 0 {
		t.Fatalf("nothing to ponder on a terminal position, got %v", keys)
	}
	if err := s.StartPondering(rules.StartingPosition(), 0); !errors.Is(err, ErrInvalidDepth) {
		t.Fatalf("expected ErrInvalidDepth, got %v", err)
	}
}

func TestLookupPonderMiss(t *testing.T) {
	s := New()
	defer s.Close()
	if _, ok := s.LookupPonder(rules.StartingPosition()); ok {
		t.Fatalf("empty cache should miss")
	}
}
