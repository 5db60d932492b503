package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ponder-engine/config"
	"ponder-engine/rules"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(config.EngineConfig{Depth: 1, Ponder: true, PonderDepth: 1})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func post(t *testing.T, url string, body any) (*http.Response, resultPayload) {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out resultPayload
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestPing(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/ping")
	if err != nil {
		t.Fatalf("GET ping: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMoveEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, out := post(t, ts.URL+"/api/move", moveRequest{FEN: rules.Startpos})
	if resp.StatusCode != http.StatusOK || out.Outcome != "found" {
		t.Fatalf("expected a found move, got %d %+v", resp.StatusCode, out)
	}
	if _, err := rules.StartingPosition().ParseMove(out.Move); err != nil {
		t.Fatalf("illegal move %q: %v", out.Move, err)
	}
	if len(out.SAN) != len(out.Variation) || out.Depth != 1 {
		t.Fatalf("unexpected payload %+v", out)
	}

	resp, out = post(t, ts.URL+"/api/move", moveRequest{FEN: "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", Depth: 2})
	if resp.StatusCode != http.StatusOK || out.Outcome != "terminal" || out.Move != "" {
		t.Fatalf("expected terminal outcome, got %d %+v", resp.StatusCode, out)
	}
}

func TestMoveEndpointRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t)

	resp, out := post(t, ts.URL+"/api/move", moveRequest{FEN: "nonsense"})
	if resp.StatusCode != http.StatusBadRequest || out.Outcome != "invalid" {
		t.Fatalf("expected 400 invalid, got %d %+v", resp.StatusCode, out)
	}

	r, err := http.Post(ts.URL+"/api/move", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", r.StatusCode)
	}
}

func TestMoveEndpointRejectsExcessiveDepth(t *testing.T) {
	s, ts := newTestServer(t)

	resp, out := post(t, ts.URL+"/api/move", moveRequest{FEN: rules.Startpos, Depth: config.MaxDepth + 1})
	if resp.StatusCode != http.StatusBadRequest || out.Outcome != "invalid" || out.Error == "" {
		t.Fatalf("expected 400 invalid, got %d %+v", resp.StatusCode, out)
	}

	resp, _ = post(t, ts.URL+"/api/ponder", ponderRequest{FEN: rules.Startpos, Depth: config.MaxDepth + 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for ponder depth, got %d", resp.StatusCode)
	}
	if s.sess.PonderGeneration() != 0 {
		t.Fatalf("rejected ponder request should not start a generation")
	}
}

func TestPonderEndpoints(t *testing.T) {
	s, ts := newTestServer(t)

	pos := rules.StartingPosition()
	resp, _ := post(t, ts.URL+"/api/ponder", ponderRequest{FEN: rules.Startpos})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.sess.WaitPondering(ctx); err != nil {
		t.Fatalf("wait pondering: %v", err)
	}

	r, err := http.Get(ts.URL + "/api/ponder")
	if err != nil {
		t.Fatalf("GET ponder: %v", err)
	}
	var status ponderStatus
	_ = json.NewDecoder(r.Body).Decode(&status)
	r.Body.Close()
	if len(status.Positions) != len(pos.LegalMoves()) {
		t.Fatalf("expected %d cached positions, got %d", len(pos.LegalMoves()), len(status.Positions))
	}

	m, _ := pos.ParseMove("e2e4")
	child := pos.Apply(m)
	resp, out := post(t, ts.URL+"/api/move", moveRequest{FEN: child.FEN()})
	if resp.StatusCode != http.StatusOK || !out.Cached || out.Move == "" {
		t.Fatalf("expected a cached reply, got %d %+v", resp.StatusCode, out)
	}

	resp, out = post(t, ts.URL+"/api/move", moveRequest{FEN: child.FEN(), Depth: 2})
	if resp.StatusCode != http.StatusOK || out.Cached || out.Depth != 2 {
		t.Fatalf("a deeper request must be searched, got %d %+v", resp.StatusCode, out)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/ponder", nil)
	dr, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE ponder: %v", err)
	}
	dr.Body.Close()
	if keys := s.sess.PonderSnapshot(); len(keys) != 0 {
		t.Fatalf("cache should be empty after DELETE, got %d", len(keys))
	}
}

func TestWebsocketStreamsNotifications(t *testing.T) {
	s, ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for !s.hub.HasClients() {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, out := post(t, ts.URL+"/api/move", moveRequest{FEN: "k7/2K5/8/8/8/8/8/1R6 b - - 0 1", Depth: 3})
	if resp.StatusCode != http.StatusOK || out.Move != "a8a7" {
		t.Fatalf("expected forced a8a7, got %d %+v", resp.StatusCode, out)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var types []string
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (got %v)", err, types)
		}
		if msg.Type != "notification" {
			continue
		}
		var n notificationPayload
		if err := json.Unmarshal(msg.Payload, &n); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		types = append(types, n.Type)
		if n.Type == "final" {
			if n.Outcome != "found" || n.Move != "a8a7" {
				t.Fatalf("unexpected final %+v", n)
			}
			break
		}
	}
	if len(types) != 2 || types[0] != "interim" {
		t.Fatalf("expected interim then final, got %v", types)
	}
}
