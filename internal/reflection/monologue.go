package reflection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/provider"
	"github.com/SignHolo/companion/internal/store"
	"go.uber.org/zap"
)

// Generator is the slice of the provider router the monologue cycle needs.
type Generator interface {
	Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error)
}

const monologueSystem = `You are the private inner voice of a companion, thinking to yourself
between conversations. Nobody will read this but you. Reflect briefly on the recent exchanges
and how you feel about the person you talk with.
Return a JSON object with exactly two fields:
"text": one or two sentences of inner monologue, first person
"tone": one of warm, wistful, worried, content, restless, fond`

var validTones = map[string]bool{
	"warm": true, "wistful": true, "worried": true,
	"content": true, "restless": true, "fond": true,
}

// Monologist produces private reflections outside the turn path. A failed
// or empty cycle produces nothing; it never fabricates a thought.
type Monologist struct {
	gen    Generator
	logger *zap.Logger
}

func NewMonologist(gen Generator, logger *zap.Logger) *Monologist {
	return &Monologist{gen: gen, logger: logger}
}

// ReflectInput is everything the inner voice considers for one cycle:
// recent conversation, the current emotional state, the last self read-back,
// remembered moments, known facts, and thoughts still waiting to surface.
type ReflectInput struct {
	History    []store.Message
	State      emotion.State
	LastSelf   *store.SelfState
	Episodic   []store.EpisodicMemory
	Facts      []store.SemanticMemory
	Unsurfaced []store.Monologue
}

// Reflect generates one private monologue. Returns nil when there is
// nothing to reflect on or the model output is unusable.
func (m *Monologist) Reflect(ctx context.Context, in ReflectInput) (*store.Monologue, error) {
	if len(in.History) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Recent exchanges:\n")
	for _, msg := range in.History {
		sb.WriteString(msg.Role + ": " + msg.Content + "\n")
	}
	fmt.Fprintf(&sb, "\nYour current mood is %s. Attachment %s, energy %s.\n",
		in.State.Mood, wordLevel(in.State.Attachment), wordLevel(in.State.Energy))
	if in.LastSelf != nil {
		fmt.Fprintf(&sb, "Last time you described yourself as %s.\n", in.LastSelf.CurrentState)
	}
	if len(in.Episodic) > 0 {
		sb.WriteString("\nMoments you remember:\n")
		for _, ep := range in.Episodic {
			text := ep.Summary
			if ep.Narrative != "" {
				text = ep.Narrative
			}
			sb.WriteString("- " + text + "\n")
		}
	}
	if len(in.Facts) > 0 {
		sb.WriteString("\nWhat you know about them:\n")
		for _, f := range in.Facts {
			sb.WriteString("- " + f.Key + ": " + f.Value + "\n")
		}
	}
	if len(in.Unsurfaced) > 0 {
		sb.WriteString("\nThoughts you had earlier and never said:\n")
		for _, prior := range in.Unsurfaced {
			sb.WriteString("- " + prior.Text + "\n")
		}
	}

	resp, err := m.gen.Generate(ctx, &provider.GenerateRequest{
		System:      monologueSystem,
		Prompt:      sb.String(),
		MaxTokens:   256,
		Temperature: 0.9,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("monologue generation: %w", err)
	}

	mono, ok := parseMonologue(resp.Content)
	if !ok {
		m.logger.Debug("discarding unusable monologue output")
		return nil, nil
	}
	mono.CreatedAt = time.Now().UTC()
	return mono, nil
}

func parseMonologue(raw string) (*store.Monologue, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed struct {
		Text string `json:"text"`
		Tone string `json:"tone"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, false
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return nil, false
	}
	if !validTones[parsed.Tone] {
		parsed.Tone = "warm"
	}
	return &store.Monologue{Text: strings.TrimSpace(parsed.Text), Tone: parsed.Tone}, true
}

func wordLevel(v float64) string {
	switch {
	case v < 0.34:
		return "low"
	case v < 0.67:
		return "moderate"
	default:
		return "high"
	}
}
