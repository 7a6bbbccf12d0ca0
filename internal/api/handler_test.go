package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/orchestrator"
	"github.com/SignHolo/companion/internal/session"
	"github.com/SignHolo/companion/internal/store"
)

type fakeRunner struct {
	reply     string
	err       error
	lastConvo string
	lastInput string
	reflected int
}

func (f *fakeRunner) HandleTurn(_ context.Context, conversationID, input string) (string, error) {
	f.lastConvo, f.lastInput = conversationID, input
	return f.reply, f.err
}

func (f *fakeRunner) ReflectIdle(_ context.Context) error {
	f.reflected++
	return nil
}

type fakeReader struct {
	state emotion.State
}

func (f *fakeReader) LoadEmotion(_ context.Context, _ time.Time) (emotion.State, error) {
	return f.state, nil
}
func (f *fakeReader) LoadSession(_ context.Context, _ string) (session.Memory, error) {
	return session.Memory{Summary: "light conversation"}, nil
}
func (f *fakeReader) RecentEpisodic(_ context.Context, _ int) ([]store.EpisodicMemory, error) {
	return nil, nil
}
func (f *fakeReader) ListTraces(_ context.Context) ([]store.EmotionalTrace, error) {
	return []store.EmotionalTrace{{Pattern: "emotional_venting:low", Confidence: 0.4}}, nil
}
func (f *fakeReader) ListSemantic(_ context.Context) ([]store.SemanticMemory, error) {
	return nil, nil
}
func (f *fakeReader) ListIdentity(_ context.Context) ([]store.IdentityMemory, error) {
	return nil, nil
}
func (f *fakeReader) ListSelfBeliefs(_ context.Context) ([]store.SelfBelief, error) {
	return nil, nil
}
func (f *fakeReader) ListMonologues(_ context.Context, _ int) ([]store.Monologue, error) {
	return nil, nil
}

func newTestServer(t *testing.T, runner *fakeRunner) *httptest.Server {
	t.Helper()
	h := NewHandler(runner, &fakeReader{state: emotion.DefaultState(time.Now())}, zap.NewNop())
	ts := httptest.NewServer(h.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestTurnEndpoint(t *testing.T) {
	runner := &fakeRunner{reply: "hello!"}
	ts := newTestServer(t, runner)

	body, _ := json.Marshal(map[string]string{"conversation_id": "c1", "input": "hi"})
	resp, err := http.Post(ts.URL+"/api/turn", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out turnResponse
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Reply != "hello!" {
		t.Errorf("reply = %q", out.Reply)
	}
	if runner.lastConvo != "c1" || runner.lastInput != "hi" {
		t.Errorf("runner called with %q, %q", runner.lastConvo, runner.lastInput)
	}
}

func TestTurnEndpointRejectsEmptyInput(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{})
	body, _ := json.Marshal(map[string]string{"conversation_id": "c1"})
	resp, err := http.Post(ts.URL+"/api/turn", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTurnEndpointInFlightConflict(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{err: orchestrator.ErrTurnInFlight})
	body, _ := json.Marshal(map[string]string{"input": "hi"})
	resp, err := http.Post(ts.URL+"/api/turn", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestStateEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{})
	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var state emotion.State
	json.NewDecoder(resp.Body).Decode(&state)
	if state.Mood == "" {
		t.Error("state mood missing")
	}
}

func TestListEndpointsNeverReturnNull(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{})
	for _, path := range []string{
		"/api/memories/episodic", "/api/memories/facts",
		"/api/memories/identity", "/api/memories/beliefs", "/api/monologues",
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		resp.Body.Close()
		if got := buf.String(); got == "null\n" {
			t.Errorf("%s returned null, want []", path)
		}
	}
}

func TestMonologueTrigger(t *testing.T) {
	runner := &fakeRunner{}
	ts := newTestServer(t, runner)
	resp, err := http.Post(ts.URL+"/api/monologue", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
	if runner.reflected != 1 {
		t.Errorf("reflect calls = %d", runner.reflected)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{})
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
