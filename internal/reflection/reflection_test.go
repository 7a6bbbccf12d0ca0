package reflection

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/provider"
	"github.com/SignHolo/companion/internal/store"
	"go.uber.org/zap"
)

func TestParseSelfState(t *testing.T) {
	reply := `I'm really glad you told me.
<self_state>{"current_state": "tender", "intensity": 0.7, "shift": "softened", "notable": "they opened up"}</self_state>`

	visible, st := ParseSelfState(reply)
	if visible != "I'm really glad you told me." {
		t.Errorf("visible = %q", visible)
	}
	if st == nil {
		t.Fatal("self state not parsed")
	}
	if st.CurrentState != "tender" || st.Intensity != 0.7 || st.Shift != "softened" {
		t.Errorf("parsed %+v", st)
	}
}

func TestParseSelfStateLastBlockWins(t *testing.T) {
	reply := `<self_state>{"current_state": "quoted example"}</self_state> is what I'd write.
<self_state>{"current_state": "calm", "intensity": 0.2}</self_state>`

	visible, st := ParseSelfState(reply)
	if st == nil || st.CurrentState != "calm" {
		t.Fatalf("want the last block, got %+v", st)
	}
	if !strings.Contains(visible, "is what I'd write") {
		t.Errorf("visible = %q", visible)
	}
}

func TestParseSelfStateMalformed(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"bad json", `hey there <self_state>{not json}</self_state>`},
		{"unclosed tag", `hey there <self_state>{"current_state": "x"}`},
		{"missing state field", `hey there <self_state>{"intensity": 0.5}</self_state>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			visible, st := ParseSelfState(tc.reply)
			if st != nil {
				t.Errorf("malformed block parsed: %+v", st)
			}
			if visible != "hey there" {
				t.Errorf("block not stripped from visible text: %q", visible)
			}
		})
	}
}

func TestParseSelfStateClampsIntensity(t *testing.T) {
	_, st := ParseSelfState(`x <self_state>{"current_state": "wired", "intensity": 3.5}</self_state>`)
	if st == nil || st.Intensity != 1 {
		t.Errorf("intensity not clamped: %+v", st)
	}
}

func TestParseSelfStateAbsent(t *testing.T) {
	visible, st := ParseSelfState("  just a normal reply  ")
	if st != nil || visible != "just a normal reply" {
		t.Errorf("got %q, %+v", visible, st)
	}
}

type fakeGen struct {
	content string
	err     error
	lastReq *provider.GenerateRequest
}

func (f *fakeGen) Generate(_ context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &provider.GenerateResponse{Content: f.content}, nil
}

func TestReflectProducesMonologue(t *testing.T) {
	gen := &fakeGen{content: `{"text": "I keep thinking about what they said tonight.", "tone": "wistful"}`}
	m := NewMonologist(gen, zap.NewNop())

	in := ReflectInput{
		History: []store.Message{
			{Role: "user", Content: "long day"},
			{Role: "companion", Content: "tell me about it"},
		},
		State: emotion.State{Mood: emotion.MoodNeutral, Attachment: 0.8, Energy: 0.5},
	}

	mono, err := m.Reflect(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if mono == nil || mono.Tone != "wistful" {
		t.Fatalf("got %+v", mono)
	}
	if mono.Surfaced {
		t.Error("new monologue must start unsurfaced")
	}
	if !gen.lastReq.JSON {
		t.Error("monologue request should ask for JSON")
	}
	if !strings.Contains(gen.lastReq.Prompt, "long day") {
		t.Error("history missing from prompt")
	}
}

func TestReflectGathersLongTermContext(t *testing.T) {
	gen := &fakeGen{content: `{"text": "I keep circling back to that night.", "tone": "worried"}`}
	m := NewMonologist(gen, zap.NewNop())

	in := ReflectInput{
		History:  []store.Message{{Role: "user", Content: "rough week"}},
		State:    emotion.State{Mood: emotion.MoodLow, Attachment: 0.7, Energy: 0.4},
		LastSelf: &store.SelfState{CurrentState: "tender", Intensity: 0.5},
		Episodic: []store.EpisodicMemory{
			{Summary: "short summary", Narrative: "I remember the night they couldn't sleep."},
		},
		Facts:      []store.SemanticMemory{{Key: "sister", Value: "named Ana"}},
		Unsurfaced: []store.Monologue{{Text: "I hope they rested.", Tone: "warm"}},
	}

	if _, err := m.Reflect(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"rough week",
		"tender",
		"I remember the night they couldn't sleep.",
		"sister: named Ana",
		"I hope they rested.",
	} {
		if !strings.Contains(gen.lastReq.Prompt, want) {
			t.Errorf("reflection prompt missing %q:\n%s", want, gen.lastReq.Prompt)
		}
	}
}

func TestReflectSkipsEmptyHistory(t *testing.T) {
	gen := &fakeGen{content: `{"text": "hm", "tone": "warm"}`}
	m := NewMonologist(gen, zap.NewNop())

	mono, err := m.Reflect(context.Background(), ReflectInput{})
	if mono != nil || err != nil {
		t.Errorf("empty history should produce nothing, got %+v, %v", mono, err)
	}
	if gen.lastReq != nil {
		t.Error("generator should not be called without history")
	}
}

func TestReflectDiscardsBadOutput(t *testing.T) {
	gen := &fakeGen{content: "just prose, no json"}
	m := NewMonologist(gen, zap.NewNop())

	in := ReflectInput{History: []store.Message{{Role: "user", Content: "hi"}}}
	mono, err := m.Reflect(context.Background(), in)
	if mono != nil || err != nil {
		t.Errorf("bad output should be discarded silently, got %+v, %v", mono, err)
	}
}

func TestReflectPropagatesProviderError(t *testing.T) {
	gen := &fakeGen{err: errors.New("backend down")}
	m := NewMonologist(gen, zap.NewNop())

	in := ReflectInput{History: []store.Message{{Role: "user", Content: "hi"}}}
	if _, err := m.Reflect(context.Background(), in); err == nil {
		t.Error("provider error should propagate")
	}
}

func TestParseMonologueNormalizesTone(t *testing.T) {
	mono, ok := parseMonologue("```json\n{\"text\": \"a thought\", \"tone\": \"ecstatic\"}\n```")
	if !ok || mono.Tone != "warm" {
		t.Errorf("unknown tone should normalize to warm: %+v", mono)
	}
}
