package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"ponder-engine/config"
	"ponder-engine/engine"
	"ponder-engine/rules"
	"ponder-engine/session"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if err := config.SetupLogging(cfg.Logs, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}
	uciLoop(os.Stdin, os.Stdout, cfg.Engine)
}

func uciLoop(in io.Reader, out io.Writer, cfg config.EngineConfig) {
	h := newUCIHost(out, cfg)
	defer h.close()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !h.handle(scanner.Text()) {
			return
		}
	}
}

// liveSearch is a "go" command in flight.
type liveSearch struct {
	pos  *rules.Position
	last rules.Move // best move of the deepest completed depth
}

type uciHost struct {
	sess *session.Session

	outMu sync.Mutex
	out   io.Writer

	mu      sync.Mutex
	cfg     config.EngineConfig
	pos     *rules.Position
	live    map[uint64]*liveSearch
	current uint64
	pending sync.WaitGroup
}

func newUCIHost(out io.Writer, cfg config.EngineConfig) *uciHost {
	h := &uciHost{
		cfg:  cfg,
		out:  out,
		pos:  rules.StartingPosition(),
		live: make(map[uint64]*liveSearch),
	}
	h.sess = session.New(session.WithListener(h.notify))
	return h
}

func (h *uciHost) println(a ...any) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	fmt.Fprintln(h.out, a...)
}

// wait blocks until every started search has printed its bestmove.
func (h *uciHost) wait() {
	h.pending.Wait()
}

func (h *uciHost) close() {
	h.wait()
	h.sess.Close()
}

// handle runs one command line. It returns false on quit.
func (h *uciHost) handle(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	switch strings.ToLower(fields[0]) {
	case "uci":
		h.println("id name Ponder Engine")
		h.println("id author the Ponder Engine authors")
		h.println(fmt.Sprintf("option name Depth type spin default %d min 1 max %d", config.DefaultDepth, config.MaxDepth))
		h.mu.Lock()
		ponder := h.cfg.Ponder
		h.mu.Unlock()
		h.println("option name Ponder type check default", ponder)
		h.println("uciok")
	case "isready":
		h.println("readyok")
	case "ucinewgame":
		h.sess.NewGame()
		h.mu.Lock()
		h.pos = rules.StartingPosition()
		h.mu.Unlock()
	case "position":
		h.position(fields[1:])
	case "go":
		h.goCommand(fields[1:])
	case "stop":
		h.mu.Lock()
		id := h.current
		h.mu.Unlock()
		if id != 0 {
			h.sess.Cancel(id)
		}
	case "setoption":
		h.setOption(fields[1:])
	case "eval":
		h.mu.Lock()
		pos := h.pos
		h.mu.Unlock()
		h.println("info string eval", engine.Evaluate(pos), "status", pos.Classify())
		s := engine.NewSearcher()
		if _, err := s.Search(context.Background(), pos, 1, -engine.Infinity, engine.Infinity, pos.WhiteToMove()); err == nil {
			for _, l := range s.Stats.Lines() {
				h.println(l)
			}
		}
	case "quit":
		h.mu.Lock()
		id := h.current
		h.mu.Unlock()
		if id != 0 {
			h.sess.Cancel(id)
		}
		return false
	default:
		h.println("info string Unknown command:", line)
	}
	return true
}

func (h *uciHost) position(args []string) {
	if len(args) == 0 {
		h.println("info string Malformed position command")
		return
	}
	var pos *rules.Position
	rest := args[1:]
	switch strings.ToLower(args[0]) {
	case "startpos":
		pos = rules.StartingPosition()
	case "fen":
		var fen []string
		for len(rest) > 0 && strings.ToLower(rest[0]) != "moves" {
			fen, rest = append(fen, rest[0]), rest[1:]
		}
		p, err := rules.ParseFEN(strings.Join(fen, " "))
		if err != nil {
			h.println("info string Invalid fen position:", err)
			return
		}
		pos = p
	default:
		h.println("info string Invalid position subcommand")
		return
	}
	if len(rest) > 0 && strings.ToLower(rest[0]) == "moves" {
		for _, s := range rest[1:] {
			m, err := pos.ParseMove(strings.ToLower(s))
			if err != nil {
				h.println("info string Move", s, "not found for position", pos.FEN())
				return
			}
			pos = pos.Apply(m)
		}
	}
	h.mu.Lock()
	h.pos = pos
	h.mu.Unlock()
}

func (h *uciHost) goCommand(args []string) {
	h.mu.Lock()
	depth, ponderDepth := h.cfg.Depth, h.cfg.PonderDepth
	h.mu.Unlock()
	for i := 0; i < len(args); i++ {
		switch strings.ToLower(args[i]) {
		case "depth":
			if i+1 >= len(args) {
				h.println("info string Malformed go command option")
				return
			}
			d, err := strconv.Atoi(args[i+1])
			if err != nil {
				h.println("info string Malformed go command option", err)
				return
			}
			if d < 1 || d > config.MaxDepth {
				h.println("info string Invalid depth", d)
				return
			}
			depth = d
			i++
		case "wtime", "btime", "winc", "binc", "movestogo", "movetime", "nodes", "mate":
			// clock limits are not supported; searches are bounded by depth
			i++
		}
	}

	h.mu.Lock()
	pos := h.pos
	h.mu.Unlock()

	// a cached reply was searched at ponderDepth and only answers shallower requests
	if m, ok := h.sess.LookupPonder(pos); ok && ponderDepth >= depth {
		log.Debug().Str("fen", pos.FEN()).Str("move", m.String()).Msg("ponder hit")
		h.println("info string ponder hit")
		h.bestmove(pos, m)
		return
	}

	// The replies still being pondered are stale now.
	h.sess.StopPondering()

	h.mu.Lock()
	// Register before submitting; the final notification may arrive at once.
	h.pending.Add(1)
	handle := h.sess.Submit(pos, depth, session.Live)
	h.live[handle.ID] = &liveSearch{pos: pos}
	h.current = handle.ID
	h.mu.Unlock()
}

// notify is the session listener. It prints the live search stream and
// answers each finished live request with a bestmove.
func (h *uciHost) notify(n session.Notification) {
	if n.Kind != session.Live {
		return
	}
	h.mu.Lock()
	ls, ok := h.live[n.ID]
	if !ok {
		h.mu.Unlock()
		return
	}
	switch n.Type {
	case session.Interim:
		ls.last = n.Move
		h.mu.Unlock()
		// a forced move is reported without a search depth
		h.println(fmt.Sprintf("info depth %d score %s pv %s",
			max(n.Depth, 1), engine.UCIScore(n.Score, ls.pos.WhiteToMove(), len(n.Variation)), n.Variation))
		return
	case session.Progress:
		h.mu.Unlock()
		h.println(fmt.Sprintf("info string progress %d%%", n.Percent))
		return
	case session.Final:
		delete(h.live, n.ID)
		if h.current == n.ID {
			h.current = 0
		}
		h.mu.Unlock()
		h.finish(ls, n.Result)
		h.pending.Done()
		return
	}
	h.mu.Unlock()
}

func (h *uciHost) finish(ls *liveSearch, res *session.Result) {
	switch {
	case res.Outcome == session.Found:
		h.bestmove(ls.pos, res.Move)
	case res.Outcome == session.Terminal:
		h.println("info string no legal move,", ls.pos.Classify())
		h.println("bestmove (none)")
	case res.Outcome == session.Cancelled && !ls.last.IsZero():
		h.bestmove(ls.pos, ls.last)
	default:
		if res.Err != nil {
			h.println("info string search", res.Outcome, "error:", res.Err)
		}
		m, ok := randomMove(ls.pos)
		if !ok {
			h.println("bestmove (none)")
			return
		}
		log.Warn().Stringer("outcome", res.Outcome).Str("move", m.String()).Msg("falling back to a random move")
		h.bestmove(ls.pos, m)
	}
}

// bestmove prints m and, with pondering on, starts pondering the opponent's
// replies to it.
func (h *uciHost) bestmove(pos *rules.Position, m rules.Move) {
	h.println("bestmove", m)
	h.mu.Lock()
	ponder, depth := h.cfg.Ponder, h.cfg.PonderDepth
	h.mu.Unlock()
	if !ponder {
		return
	}
	next := pos.Apply(m)
	if err := h.sess.StartPondering(next, depth); err != nil {
		log.Warn().Err(err).Str("fen", next.FEN()).Msg("could not start pondering")
	}
}

func (h *uciHost) setOption(args []string) {
	var name, value string
	for i := 0; i+1 < len(args); i++ {
		switch strings.ToLower(args[i]) {
		case "name":
			name = strings.ToLower(args[i+1])
		case "value":
			value = strings.ToLower(args[i+1])
		}
	}
	switch name {
	case "depth":
		d, err := strconv.Atoi(value)
		if err != nil || d < 1 || d > config.MaxDepth {
			h.println("info string Invalid Depth value", value)
			return
		}
		h.mu.Lock()
		h.cfg.Depth = d
		h.mu.Unlock()
	case "ponder":
		on, err := strconv.ParseBool(value)
		if err != nil {
			h.println("info string Invalid Ponder value", value)
			return
		}
		h.mu.Lock()
		h.cfg.Ponder = on
		h.mu.Unlock()
		if !on {
			h.sess.StopPondering()
		}
	default:
		h.println("info string Unknown option", name)
	}
}

// randomMove picks a uniformly random legal move.
func randomMove(pos *rules.Position) (rules.Move, bool) {
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return rules.Move{}, false
	}
	return moves[frand.Intn(len(moves))], true
}
