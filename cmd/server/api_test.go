package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"starreign.ai/internal/agent/decision"
	"starreign.ai/internal/agent/rules"
	"starreign.ai/internal/persistence/store"
	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/tuning"
	"starreign.ai/internal/sim/turn"
	"starreign.ai/internal/transport/ws"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tune := tuning.Defaults()
	eng, err := rules.NewEngine(rules.DefaultRules(), logger)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	st := store.NewMemory()
	engine := turn.New(turn.Options{
		Store:   st,
		Tuning:  tune,
		Decider: decision.New(tune, eng, nil, nil, logger),
		Logger:  logger,
	})
	hub := ws.NewHub(st, logger)
	engine.AddPublisher(hub)
	a := &api{engine: engine, log: logger}
	srv := httptest.NewServer(a.routes(hub))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func createTestGame(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, out := post(t, srv.URL+"/v1/games", `{"player_name":"Ada","agents":4,"seed":7}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d body %v", resp.StatusCode, out)
	}
	g, _ := out["game"].(map[string]any)
	id, _ := g["id"].(string)
	if id == "" {
		t.Fatalf("create: no game id in %v", out)
	}
	return id
}

func TestGameLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id := createTestGame(t, srv)

	resp, err := http.Get(srv.URL + "/v1/games/" + id)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var view turn.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	resp.Body.Close()
	if view.Game.Turn != 1 || len(view.Empires) != 5 {
		t.Fatalf("view: turn %d empires %d", view.Game.Turn, len(view.Empires))
	}

	resp, out := post(t, srv.URL+"/v1/games/"+id+"/plan?wait=1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plan: status %d body %v", resp.StatusCode, out)
	}

	resp, err = http.Post(srv.URL+"/v1/games/"+id+"/end-turn", "application/json", strings.NewReader(`{"action":"no_op"}`))
	if err != nil {
		t.Fatalf("end-turn: %v", err)
	}
	var rep protocol.TurnReport
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || rep.Turn != 1 || rep.NextTurn != 2 || len(rep.Decisions) != 5 {
		t.Fatalf("report: status %d %+v", resp.StatusCode, rep)
	}
}

func TestEndTurnRejectsSchemaViolations(t *testing.T) {
	srv := newTestServer(t)
	id := createTestGame(t, srv)
	resp, out := post(t, srv.URL+"/v1/games/"+id+"/end-turn", `{"action":"attack","target_id":"x","fleet":{"fighters":1},"bogus":true}`)
	if resp.StatusCode != http.StatusBadRequest || out["code"] != protocol.ErrSchema {
		t.Fatalf("status %d body %v", resp.StatusCode, out)
	}
}

func TestUnknownGame(t *testing.T) {
	srv := newTestServer(t)
	resp, out := post(t, srv.URL+"/v1/games/nope/end-turn", "")
	if resp.StatusCode != http.StatusNotFound || out["code"] != protocol.ErrGameNotFound {
		t.Fatalf("status %d body %v", resp.StatusCode, out)
	}
}

func TestCreateGameValidatesAgentCount(t *testing.T) {
	srv := newTestServer(t)
	resp, out := post(t, srv.URL+"/v1/games", `{"player_name":"Ada","agents":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d body %v", resp.StatusCode, out)
	}
}

func TestIPLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newIPLimiter(1, 2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || !l.allow("10.0.0.1") {
		t.Fatalf("burst should admit two")
	}
	if l.allow("10.0.0.1") {
		t.Fatalf("third request in the same instant should be limited")
	}
	if !l.allow("10.0.0.2") {
		t.Fatalf("other clients have their own bucket")
	}
	now = now.Add(time.Second)
	if !l.allow("10.0.0.1") {
		t.Fatalf("token should refill after a second")
	}

	now = now.Add(2 * time.Minute)
	if n := l.sweep(); n != 2 {
		t.Fatalf("sweep removed %d, want 2", n)
	}
}

func TestIPLimiterMiddleware(t *testing.T) {
	l := newIPLimiter(0.001, 1, time.Minute)
	h := l.middleware(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) { rw.WriteHeader(http.StatusNoContent) }))

	req := httptest.NewRequest(http.MethodGet, "/v1/games/x", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", rec.Code)
	}

	health := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	health.RemoteAddr = "192.0.2.1:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, health)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("healthz should bypass limiter: %d", rec.Code)
	}
}
