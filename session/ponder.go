package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"ponder-engine/rules"
)

// ponderState is guarded by Session.ponderMu. A generation covers one
// StartPondering call; results of older generations are dropped.
type ponderState struct {
	gen     uint64
	cache   map[string]rules.Move
	handles []*Handle
	done    chan struct{}
}

// ponderKey identifies a position by placement, side to move, castling and en
// passant rights, ignoring the move clocks.
func ponderKey(p *rules.Position) string {
	fields := strings.Fields(p.FEN())
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

// StartPondering clears the cache and queues one ponder request for every
// position reachable by a legal move from pos. Each reply found is cached
// under the position it answers. Outstanding requests of the previous
// generation are cancelled.
func (s *Session) StartPondering(pos *rules.Position, depth int) error {
	if depth < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	if pos == nil {
		return fmt.Errorf("%w: no position", rules.ErrInvalidPosition)
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	var moves []rules.Move
	if legal := pos.LegalMoves(); !pos.ClassifyLegal(legal).IsTerminal() {
		moves = legal
	}

	s.ponderMu.Lock()
	stale := s.ponder.handles
	s.ponder.gen++
	gen := s.ponder.gen
	s.ponder.cache = make(map[string]rules.Move, len(moves))

	keys := make([]string, len(moves))
	handles := make([]*Handle, len(moves))
	for i, m := range moves {
		child := pos.Apply(m)
		keys[i] = ponderKey(child)
		handles[i] = s.Submit(child, depth, Ponder)
	}
	done := make(chan struct{})
	s.ponder.handles = handles
	s.ponder.done = done
	s.ponderMu.Unlock()

	for _, h := range stale {
		s.Cancel(h.ID)
	}

	log.Debug().Uint64("generation", gen).Int("requests", len(handles)).Int("depth", depth).Msg("pondering started")
	go s.collect(gen, keys, handles, done)
	return nil
}

func (s *Session) collect(gen uint64, keys []string, handles []*Handle, done chan struct{}) {
	defer close(done)
	var g errgroup.Group
	for i := range handles {
		key, h := keys[i], handles[i]
		g.Go(func() error {
			res := h.Result()
			switch res.Outcome {
			case Found:
				s.storePonder(gen, key, res.Move)
			case Failed:
				return fmt.Errorf("ponder request %d: %w", res.ID, res.Err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Uint64("generation", gen).Err(err).Msg("pondering incomplete")
	}
}

func (s *Session) storePonder(gen uint64, key string, m rules.Move) {
	s.ponderMu.Lock()
	defer s.ponderMu.Unlock()
	if gen != s.ponder.gen {
		return
	}
	s.ponder.cache[key] = m
}

// StopPondering cancels the current generation's outstanding requests and
// clears the cache.
func (s *Session) StopPondering() {
	s.resetPonder()
}

func (s *Session) resetPonder() {
	s.ponderMu.Lock()
	stale := s.ponder.handles
	s.ponder.gen++
	s.ponder.cache = make(map[string]rules.Move)
	s.ponder.handles = nil
	s.ponderMu.Unlock()

	for _, h := range stale {
		s.Cancel(h.ID)
	}
}

// LookupPonder returns the cached reply for pos, as a legal move of pos.
func (s *Session) LookupPonder(pos *rules.Position) (rules.Move, bool) {
	key := ponderKey(pos)
	s.ponderMu.Lock()
	m, ok := s.ponder.cache[key]
	s.ponderMu.Unlock()
	if !ok {
		return rules.Move{}, false
	}
	legal, err := pos.ParseMove(m.String())
	if err != nil {
		return rules.Move{}, false
	}
	return legal, true
}

// WaitPondering blocks until every request of the current generation is
// resolved.
func (s *Session) WaitPondering(ctx context.Context) error {
	s.ponderMu.Lock()
	done := s.ponder.done
	s.ponderMu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Populate starts pondering on pos and waits for it to finish.
func (s *Session) Populate(ctx context.Context, pos *rules.Position, depth int) error {
	if err := s.StartPondering(pos, depth); err != nil {
		return err
	}
	return s.WaitPondering(ctx)
}

// PonderSnapshot lists the cached position keys in sorted order.
func (s *Session) PonderSnapshot() []string {
	s.ponderMu.Lock()
	keys := maps.Keys(s.ponder.cache)
	s.ponderMu.Unlock()
	slices.Sort(keys)
	return keys
}

// PonderGeneration returns the current ponder generation.
func (s *Session) PonderGeneration() uint64 {
	s.ponderMu.Lock()
	defer s.ponderMu.Unlock()
	return s.ponder.gen
}
