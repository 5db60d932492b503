// Package session runs engine searches on a dedicated goroutine. It accepts
// live and ponder requests, supersedes stale live requests, streams
// notifications and keeps the ponder cache.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"ponder-engine/engine"
	"ponder-engine/rules"
)

// Kind separates requests whose result is played from speculative ones.
type Kind uint8

const (
	Live Kind = iota
	Ponder
)

func (k Kind) String() string {
	if k == Live {
		return "live"
	}
	return "ponder"
}

// Outcome classifies how a request ended.
type Outcome uint8

const (
	// Found means a move was chosen.
	Found Outcome = iota
	// Terminal means the position has no move to play: mate or a draw.
	Terminal
	// Cancelled means the request was superseded or cancelled. It is not a
	// resignation.
	Cancelled
	// Invalid means the request was rejected before searching.
	Invalid
	// Failed means the search raised an error.
	Failed
)

var outcomeNames = [...]string{"found", "terminal", "cancelled", "invalid", "failed"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Request is a search order.
type Request struct {
	ID       uint64
	Position *rules.Position
	Depth    int
	Kind     Kind
}

// Result is the resolution of a Request.
type Result struct {
	ID        uint64
	Kind      Kind
	Move      rules.Move
	HasMove   bool
	Score     int32
	Variation engine.Variation
	Depth     int
	Outcome   Outcome
	Err       error
}

// Handle tracks one submitted request.
type Handle struct {
	ID   uint64
	Kind Kind

	done   chan struct{}
	result Result
}

func newHandle(id uint64, kind Kind) *Handle {
	return &Handle{ID: id, Kind: kind, done: make(chan struct{})}
}

// Done is closed once the request is resolved.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result blocks until the request is resolved.
func (h *Handle) Result() Result {
	<-h.done
	return h.result
}

// Wait is Result bounded by ctx.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type deepenFunc func(ctx context.Context, pos *rules.Position, depth int, hooks engine.Hooks) (engine.Report, error)

type job struct {
	req    Request
	ctx    context.Context
	cancel context.CancelFunc
	handle *Handle

	// guarded by Session.mu
	finalized bool
}

// Option configures a Session.
type Option func(*Session)

// WithListener sets the notification listener.
func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

// withDeepen replaces the search driver.
func withDeepen(f deepenFunc) Option {
	return func(s *Session) { s.deepen = f }
}

// Session owns one game's search state.
type Session struct {
	listener Listener
	deepen   deepenFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	nextID  uint64
	liveID  uint64
	pending map[uint64]*job
	liveQ   []*job
	ponderQ []*job
	closed  bool

	wake       chan struct{}
	workerDone chan struct{}
	outDone    chan struct{}
	out        *outbox

	ponderMu sync.Mutex
	ponder   ponderState
}

// New starts a session with its worker and dispatcher goroutines.
func New(opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ctx:        ctx,
		cancel:     cancel,
		pending:    make(map[uint64]*job),
		wake:       make(chan struct{}, 1),
		workerDone: make(chan struct{}),
		outDone:    make(chan struct{}),
		out:        newOutbox(),
	}
	s.ponder.cache = make(map[string]rules.Move)
	s.deepen = engine.NewSearcher().Deepen
	for _, opt := range opts {
		opt(s)
	}

	go s.work()
	go func() {
		defer close(s.outDone)
		s.out.run(s.listener)
	}()
	return s
}

// Submit queues a search of pos and returns at once. A live request cancels
// the live request still pending, whose final notification is sent before
// Submit returns.
func (s *Session) Submit(pos *rules.Position, depth int, kind Kind) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	h := newHandle(s.nextID, kind)
	switch {
	case s.closed:
		s.rejectLocked(h, Failed, ErrSessionClosed)
		return h
	case pos == nil:
		s.rejectLocked(h, Invalid, fmt.Errorf("%w: no position", rules.ErrInvalidPosition))
		return h
	case depth < 1:
		s.rejectLocked(h, Invalid, fmt.Errorf("%w: %d", ErrInvalidDepth, depth))
		return h
	}

	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{
		req:    Request{ID: h.ID, Position: pos, Depth: depth, Kind: kind},
		ctx:    ctx,
		cancel: cancel,
		handle: h,
	}

	if kind == Live {
		if prev, ok := s.pending[s.liveID]; ok {
			log.Debug().Uint64("id", prev.req.ID).Uint64("by", h.ID).Msg("live request superseded")
			s.cancelLocked(prev)
		}
		s.liveID = h.ID
		s.liveQ = append(s.liveQ, j)
	} else {
		s.ponderQ = append(s.ponderQ, j)
	}
	s.pending[h.ID] = j

	log.Debug().Uint64("id", h.ID).Stringer("kind", kind).Int("depth", depth).Str("fen", pos.FEN()).Msg("request queued")

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return h
}

// SubmitFEN is Submit for a FEN string. A malformed FEN resolves the request
// at once with Outcome Invalid.
func (s *Session) SubmitFEN(fen string, depth int, kind Kind) *Handle {
	pos, err := rules.ParseFEN(fen)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.nextID++
		h := newHandle(s.nextID, kind)
		if s.closed {
			s.rejectLocked(h, Failed, ErrSessionClosed)
		} else {
			s.rejectLocked(h, Invalid, err)
		}
		return h
	}
	return s.Submit(pos, depth, kind)
}

// Cancel resolves a pending request as cancelled. It reports whether the
// request was still pending.
func (s *Session) Cancel(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.pending[id]
	if !ok {
		return false
	}
	s.cancelLocked(j)
	return true
}

// NewGame cancels every pending request and clears the ponder cache.
func (s *Session) NewGame() {
	s.mu.Lock()
	s.cancelAllLocked()
	s.mu.Unlock()
	s.resetPonder()
	log.Debug().Msg("new game")
}

// Close cancels everything and stops the session goroutines. Requests
// submitted afterwards fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancelAllLocked()
	s.mu.Unlock()

	s.cancel()
	<-s.workerDone
	s.resetPonder()
	s.out.close()
	<-s.outDone
	return nil
}

// Pending returns the number of unresolved requests.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Session) cancelAllLocked() {
	for _, j := range s.pending {
		s.cancelLocked(j)
	}
	s.liveQ, s.ponderQ = nil, nil
	s.liveID = 0
}

func (s *Session) cancelLocked(j *job) {
	s.finishLocked(j, Result{ID: j.req.ID, Kind: j.req.Kind, Outcome: Cancelled})
	j.cancel()
}

// rejectLocked resolves a request that never reached the queue.
func (s *Session) rejectLocked(h *Handle, outcome Outcome, err error) {
	log.Debug().Uint64("id", h.ID).Stringer("outcome", outcome).Err(err).Msg("request rejected")
	h.result = Result{ID: h.ID, Kind: h.Kind, Outcome: outcome, Err: err}
	close(h.done)
	if !s.closed {
		res := h.result
		s.out.push(Notification{Type: Final, ID: h.ID, Kind: h.Kind, Result: &res})
	}
}

// finishLocked resolves j once. It reports false if j was already resolved.
func (s *Session) finishLocked(j *job, res Result) bool {
	if j.finalized {
		return false
	}
	j.finalized = true
	delete(s.pending, j.req.ID)
	if s.liveID == j.req.ID {
		s.liveID = 0
	}
	j.handle.result = res
	close(j.handle.done)

	final := res
	s.out.push(Notification{
		Type:      Final,
		ID:        res.ID,
		Kind:      res.Kind,
		Depth:     res.Depth,
		Move:      res.Move,
		Score:     res.Score,
		Variation: res.Variation,
		Result:    &final,
	})
	return true
}

func (s *Session) finish(j *job, res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(j, res)
}

// emit forwards a notification of j unless j is already resolved.
func (s *Session) emit(j *job, n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.finalized {
		return
	}
	n.ID, n.Kind = j.req.ID, j.req.Kind
	s.out.push(n)
}

func (s *Session) work() {
	defer close(s.workerDone)
	for {
		j, ok := s.next()
		if !ok {
			return
		}
		res := s.search(j)
		s.finish(j, res)
		j.cancel()
	}
}

// next blocks until a request is queued. Live requests go first.
func (s *Session) next() (*job, bool) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, false
		}
		var j *job
		switch {
		case len(s.liveQ) > 0:
			j, s.liveQ = s.liveQ[0], s.liveQ[1:]
		case len(s.ponderQ) > 0:
			j, s.ponderQ = s.ponderQ[0], s.ponderQ[1:]
		}
		if j != nil && !j.finalized {
			s.mu.Unlock()
			return j, true
		}
		empty := j == nil
		s.mu.Unlock()

		if !empty {
			continue
		}
		select {
		case <-s.wake:
		case <-s.ctx.Done():
		}
	}
}

func (s *Session) search(j *job) (res Result) {
	req := j.req
	res = Result{ID: req.ID, Kind: req.Kind}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Uint64("id", req.ID).Interface("panic", r).Msg("search panicked")
			res = Result{ID: req.ID, Kind: req.Kind, Outcome: Failed, Err: fmt.Errorf("%w: %v", ErrSearchFailed, r)}
		}
	}()

	hooks := engine.Hooks{
		Exploring: func(depth int, m rules.Move, line engine.Line) {
			s.emit(j, Notification{Type: Exploring, Depth: depth, Move: m, Score: line.Score, Variation: line.Variation})
		},
		DepthComplete: func(depth int, best engine.Line) {
			m, _ := best.Variation.First()
			s.emit(j, Notification{Type: Interim, Depth: depth, Move: m, Score: best.Score, Variation: best.Variation})
		},
	}
	if req.Kind == Live {
		hooks.RootMoveDone = func(depth, done, total int) {
			percent := ((depth-1)*total + done) * 100 / (req.Depth * total)
			s.emit(j, Notification{Type: Progress, Depth: depth, Percent: percent})
		}
	}

	rep, err := s.deepen(j.ctx, req.Position, req.Depth, hooks)
	switch {
	case errors.Is(err, context.Canceled):
		res.Outcome = Cancelled
		return res
	case err != nil:
		log.Error().Uint64("id", req.ID).Err(err).Msg("search failed")
		res.Outcome, res.Err = Failed, fmt.Errorf("%w: %v", ErrSearchFailed, err)
		return res
	}

	res.Score = rep.Score
	res.Depth = rep.Depth
	if rep.Terminal {
		res.Outcome = Terminal
		return res
	}
	if rep.Forced {
		s.emit(j, Notification{Type: Interim, Move: rep.Move, Score: rep.Score, Variation: rep.Variation})
	}
	res.Outcome = Found
	res.Move, res.HasMove = rep.Move, rep.HasMove
	res.Variation = rep.Variation

	log.Debug().
		Uint64("id", req.ID).
		Stringer("kind", req.Kind).
		Str("move", rep.Move.String()).
		Int32("score", rep.Score).
		Uint64("nodes", rep.Stats.Nodes).
		Msg("search done")
	return res
}
