// Package server exposes a session over HTTP and streams its notifications
// to websocket clients.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"ponder-engine/config"
	"ponder-engine/engine"
	"ponder-engine/rules"
	"ponder-engine/session"
)

type notificationPayload struct {
	Type      string   `json:"type"`
	ID        uint64   `json:"id"`
	Kind      string   `json:"kind"`
	Depth     int      `json:"depth,omitempty"`
	Move      string   `json:"move,omitempty"`
	Score     int32    `json:"score"`
	Variation []string `json:"variation,omitempty"`
	Progress  int      `json:"progress,omitempty"`
	Outcome   string   `json:"outcome,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type resultPayload struct {
	ID        uint64   `json:"id,omitempty"`
	Kind      string   `json:"kind"`
	Outcome   string   `json:"outcome"`
	Move      string   `json:"move,omitempty"`
	SAN       []string `json:"san,omitempty"`
	Score     int32    `json:"score"`
	Depth     int      `json:"depth"`
	Variation []string `json:"variation,omitempty"`
	Cached    bool     `json:"cached,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type moveRequest struct {
	FEN   string `json:"fen"`
	Depth int    `json:"depth"`
	Kind  string `json:"kind"`
}

type ponderRequest struct {
	FEN   string `json:"fen"`
	Depth int    `json:"depth"`
}

type ponderStatus struct {
	Generation uint64   `json:"generation"`
	Positions  []string `json:"positions"`
}

// Server owns a session and the hub its notifications are published on.
type Server struct {
	cfg  config.EngineConfig
	sess *session.Session
	hub  *Hub
	done chan struct{}
}

func New(cfg config.EngineConfig) *Server {
	s := &Server{
		cfg:  cfg,
		hub:  NewHub(),
		done: make(chan struct{}),
	}
	s.sess = session.New(session.WithListener(s.publish))
	go s.hub.Run(s.done)
	return s
}

// Close stops the session and disconnects websocket clients.
func (s *Server) Close() error {
	err := s.sess.Close()
	close(s.done)
	return err
}

func (s *Server) publish(n session.Notification) {
	p := notificationPayload{
		Type:      n.Type.String(),
		ID:        n.ID,
		Kind:      n.Kind.String(),
		Depth:     n.Depth,
		Score:     n.Score,
		Variation: n.Variation.Strings(),
		Progress:  n.Percent,
	}
	if !n.Move.IsZero() {
		p.Move = n.Move.String()
	}
	if n.Result != nil {
		p.Outcome = n.Result.Outcome.String()
		if n.Result.Err != nil {
			p.Error = n.Result.Err.Error()
		}
	}
	s.hub.Publish("notification", p)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Post("/api/move", s.handleMove)
	r.Post("/api/cancel/{id}", s.handleCancel)
	r.Post("/api/newgame", func(w http.ResponseWriter, r *http.Request) {
		s.sess.NewGame()
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/ponder", s.handlePonderStatus)
	r.Post("/api/ponder", s.handlePonderStart)
	r.Delete("/api/ponder", func(w http.ResponseWriter, r *http.Request) {
		s.sess.StopPondering()
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(s.hub, w, r)
	})
	return r
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var payload moveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	kind := lo.Ternary(payload.Kind == session.Ponder.String(), session.Ponder, session.Live)
	depth := lo.Ternary(payload.Depth > 0, payload.Depth, s.cfg.Depth)
	if depth < 1 || depth > config.MaxDepth {
		writeJSON(w, http.StatusBadRequest, resultPayload{
			Kind:    kind.String(),
			Outcome: session.Invalid.String(),
			Error:   fmt.Sprintf("depth %d out of range 1..%d", depth, config.MaxDepth),
		})
		return
	}

	pos, err := rules.ParseFEN(payload.FEN)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, resultPayload{Kind: kind.String(), Outcome: session.Invalid.String(), Error: err.Error()})
		return
	}

	if kind == session.Live && depth <= s.cfg.PonderDepth {
		if m, ok := s.sess.LookupPonder(pos); ok {
			log.Debug().Str("fen", pos.FEN()).Str("move", m.String()).Msg("ponder hit")
			writeJSON(w, http.StatusOK, resultPayload{
				Kind:      kind.String(),
				Outcome:   session.Found.String(),
				Move:      m.String(),
				SAN:       sanOf(pos, engine.Variation{m}),
				Score:     engine.Evaluate(pos.Apply(m)),
				Variation: []string{m.String()},
				Cached:    true,
			})
			return
		}
	}

	h := s.sess.Submit(pos, depth, kind)
	res, err := h.Wait(r.Context())
	if err != nil {
		s.sess.Cancel(h.ID)
		return
	}

	status := http.StatusOK
	switch res.Outcome {
	case session.Invalid:
		status = http.StatusBadRequest
	case session.Failed:
		status = http.StatusInternalServerError
	}
	out := resultPayload{
		ID:        res.ID,
		Kind:      res.Kind.String(),
		Outcome:   res.Outcome.String(),
		Score:     res.Score,
		Depth:     res.Depth,
		Variation: res.Variation.Strings(),
		SAN:       sanOf(pos, res.Variation),
	}
	if res.HasMove {
		out.Move = res.Move.String()
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	writeJSON(w, status, out)
}

func sanOf(pos *rules.Position, v engine.Variation) []string {
	if len(v) == 0 {
		return nil
	}
	san, err := rules.SAN(pos, v)
	if err != nil {
		log.Warn().Err(err).Str("fen", pos.FEN()).Msg("SAN rendering failed")
		return nil
	}
	return san
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.sess.Cancel(id)})
}

func (s *Server) handlePonderStart(w http.ResponseWriter, r *http.Request) {
	var payload ponderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	pos, err := rules.ParseFEN(payload.FEN)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	depth := lo.Ternary(payload.Depth > 0, payload.Depth, s.cfg.PonderDepth)
	if depth < 1 || depth > config.MaxDepth {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("depth %d out of range 1..%d", depth, config.MaxDepth),
		})
		return
	}
	if err := s.sess.StartPondering(pos, depth); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrInvalidDepth) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]uint64{"generation": s.sess.PonderGeneration()})
}

func (s *Server) handlePonderStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ponderStatus{
		Generation: s.sess.PonderGeneration(),
		Positions:  s.sess.PonderSnapshot(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
