package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"starreign.ai/internal/sim/tuning"
)

func okHandler(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   req.Model,
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": text}}},
			"usage":   map[string]any{"prompt_tokens": 1000, "completion_tokens": 500},
		})
	}
}

func newTestClient(t *testing.T, name, url string, timeoutMs int) *Client {
	t.Helper()
	c, err := New(tuning.Provider{
		Name:            name,
		BaseURL:         url,
		Model:           "m1",
		TimeoutMs:       timeoutMs,
		PromptCostPer1K: 0.002,
		OutputCostPer1K: 0.004,
	}, "k")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RejectsBadConfig(t *testing.T) {
	if _, err := New(tuning.Provider{Name: "x", Model: "m"}, ""); err == nil {
		t.Fatalf("expected error for missing base_url")
	}
	if _, err := New(tuning.Provider{Name: "x", BaseURL: "not a url", Model: "m"}, ""); err == nil {
		t.Fatalf("expected error for invalid base_url")
	}
}

func TestClient_CompleteComputesCost(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		okHandler(`{"action":"no_op"}`)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, "p1", srv.URL+"/v1", 1000)
	resp, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotAuth != "Bearer k" || gotPath != "/v1/chat/completions" {
		t.Fatalf("auth=%q path=%q", gotAuth, gotPath)
	}
	if resp.Text != `{"action":"no_op"}` || resp.Provider != "p1" || resp.Model != "m1" {
		t.Fatalf("resp: %+v", resp)
	}
	if resp.CostUSD < 0.003999 || resp.CostUSD > 0.004001 {
		t.Fatalf("cost: %v", resp.CostUSD)
	}
}

func TestClient_ClassifiesFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"rate limited", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }, ErrRateLimited},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }, ErrUnavailable},
		{"not json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) }, ErrMalformed},
		{"no choices", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"choices":[]}`)) }, ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			_, err := newTestClient(t, "p", srv.URL, 1000).Complete(context.Background(), Request{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestClient_LocalQuota(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		okHandler(`{"action":"no_op"}`)(w, r)
	}))
	defer srv.Close()

	c, err := New(tuning.Provider{Name: "p", BaseURL: srv.URL, Model: "m1", RequestsPerMin: 1}, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err = c.Complete(context.Background(), Request{})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second call: want ErrRateLimited, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("server saw %d calls, want 1", calls)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(t, "slow", srv.URL, 30).Complete(context.Background(), Request{})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if Reason(err) != "timeout" {
		t.Fatalf("reason = %q", Reason(err))
	}
}

type fakeProvider struct {
	name  string
	err   error
	text  string
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, req Request) (Response, error) {
	f.calls++
	if f.err != nil {
		return Response{}, f.err
	}
	return Response{Text: f.text, Provider: f.name, CostUSD: 0.01}, nil
}

func TestChain_FailsOverInOrder(t *testing.T) {
	a := &fakeProvider{name: "a", err: ErrUnavailable}
	b := &fakeProvider{name: "b", text: "ok"}
	c := &fakeProvider{name: "c", text: "never"}
	resp, attempts, err := NewChain(nil, a, b, c).Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Provider != "b" || len(attempts) != 2 || c.calls != 0 {
		t.Fatalf("resp=%+v attempts=%+v c.calls=%d", resp, attempts, c.calls)
	}
}

func TestChain_AllTimeouts(t *testing.T) {
	ps := []Provider{
		&fakeProvider{name: "a", err: ErrTimeout},
		&fakeProvider{name: "b", err: ErrTimeout},
		&fakeProvider{name: "c", err: ErrTimeout},
	}
	_, attempts, err := NewChain(nil, ps...).Complete(context.Background(), Request{})
	if !errors.Is(err, ErrTimeout) || len(attempts) != 3 {
		t.Fatalf("err=%v attempts=%d", err, len(attempts))
	}
	if !AllFailedWith(attempts, ErrTimeout) {
		t.Fatalf("expected all attempts to be timeouts")
	}
}

func TestChain_CancelledContextStopsWalk(t *testing.T) {
	a := &fakeProvider{name: "a", text: "ok"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, attempts, err := NewChain(nil, a).Complete(ctx, Request{})
	if err == nil || a.calls != 0 || len(attempts) != 0 {
		t.Fatalf("err=%v calls=%d attempts=%d", err, a.calls, len(attempts))
	}
}

func TestReason(t *testing.T) {
	if Reason(nil) != "" || Reason(ErrRateLimited) != "provider_rate_limited" ||
		Reason(ErrMalformed) != "malformed_response" || Reason(errors.New("x")) != "provider_unavailable" {
		t.Fatalf("unexpected reason mapping")
	}
}

func TestChain_GateDenialStopsWalk(t *testing.T) {
	a := &fakeProvider{name: "a", err: ErrTimeout}
	b := &fakeProvider{name: "b", text: "ok"}
	calls := 0
	gate := func(string) (bool, string) {
		calls++
		return calls == 1, "per_turn_cap"
	}
	_, attempts, err := NewChain(nil, a, b).CompleteGated(context.Background(), Request{}, gate)
	if !errors.Is(err, ErrTimeout) || len(attempts) != 1 || b.calls != 0 {
		t.Fatalf("err=%v attempts=%d b.calls=%d", err, len(attempts), b.calls)
	}

	_, _, err = NewChain(nil, b).CompleteGated(context.Background(), Request{}, func(string) (bool, string) { return false, "daily_spend_cap" })
	if !errors.Is(err, ErrDenied) || Reason(err) != "budget_exceeded" {
		t.Fatalf("err=%v reason=%q", err, Reason(err))
	}
}
