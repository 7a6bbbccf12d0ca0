// Package assembler selects and ranks long-term memory and renders the
// bounded per-turn context handed to generation.
package assembler

import (
	"fmt"
	"strings"
	"time"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/session"
	"github.com/SignHolo/companion/internal/store"
)

const (
	maxEpisodic   = 3
	maxTraces     = 2
	maxMonologues = 2
	maxFacts      = 12
	maxBeliefs    = 8
)

// Gap thresholds before attachment scaling.
const (
	gapMild     = 24 * time.Hour
	gapModerate = 72 * time.Hour
	gapHigh     = 168 * time.Hour

	// highAttachment halves the gap thresholds: a more attached companion
	// feels absence sooner.
	highAttachment = 0.7
)

// Candidates is the batch of long-term memories fetched for one turn.
type Candidates struct {
	Episodic []store.EpisodicMemory
	Traces   []store.EmotionalTrace
	Semantic []store.SemanticMemory
	Identity []store.IdentityMemory
}

// Input carries everything the assembler needs for one turn.
type Input struct {
	State      emotion.State
	Session    session.Memory
	Candidates Candidates
	Gap        time.Duration
	Now        time.Time

	// Similarity maps episodic memory ID to a cosine score against the
	// current input embedding. Optional; nil when no embedding available.
	Similarity map[string]float64

	// Monologues are still-unsurfaced private reflections to weave in.
	Monologues []store.Monologue

	// PrevSelfState is the companion's read-back from the previous turn.
	PrevSelfState *store.SelfState
}

// Bundle is the bounded context handed to response generation. It carries
// no raw logs and no internal confidence scores.
type Bundle struct {
	EmotionSnapshot string
	GapLabel        string
	SessionSummary  string
	Unresolved      bool
	Moments         []string
	Patterns        []string
	Facts           []string
	Beliefs         []string
	Monologues      []string
	PrevSelfState   string
}

// Assemble builds the context bundle for one turn.
func Assemble(in Input) Bundle {
	b := Bundle{
		EmotionSnapshot: snapshot(in.State),
		GapLabel:        gapLabel(in.Gap, in.State.Attachment),
		SessionSummary:  in.Session.Summary,
		Unresolved:      in.Session.Unresolved,
	}

	for _, m := range rankEpisodic(in.Candidates.Episodic, in.Now, in.Similarity) {
		text := m.Summary
		if m.Narrative != "" {
			text = m.Narrative
		}
		b.Moments = append(b.Moments, text)
	}

	for _, tr := range topTraces(in.Candidates.Traces) {
		b.Patterns = append(b.Patterns, describePattern(tr.Pattern))
	}

	// Facts and beliefs are small collections in practice, but they still
	// get the same truncation discipline as episodic memories.
	for _, s := range topFacts(in.Candidates.Semantic) {
		b.Facts = append(b.Facts, s.Key+": "+s.Value)
	}
	for _, id := range topBeliefs(in.Candidates.Identity) {
		b.Beliefs = append(b.Beliefs, id.Statement)
	}

	for i, m := range in.Monologues {
		if i >= maxMonologues {
			break
		}
		b.Monologues = append(b.Monologues, m.Text)
	}

	if in.PrevSelfState != nil {
		b.PrevSelfState = fmt.Sprintf("%s (intensity %.1f)", in.PrevSelfState.CurrentState, in.PrevSelfState.Intensity)
	}

	return b
}

// Render flattens the bundle into the prompt section injected before the
// user's message.
func (b Bundle) Render() string {
	var sb strings.Builder

	sb.WriteString("[Inner state] " + b.EmotionSnapshot + "\n")
	if b.GapLabel != "" {
		sb.WriteString("[Time apart] " + b.GapLabel + "\n")
	}
	if b.SessionSummary != "" {
		sb.WriteString("[This conversation] " + b.SessionSummary + "\n")
	}
	if b.PrevSelfState != "" {
		sb.WriteString("[How you felt last turn] " + b.PrevSelfState + "\n")
	}
	writeSection(&sb, "[Moments you remember]", b.Moments)
	writeSection(&sb, "[Patterns you have noticed]", b.Patterns)
	writeSection(&sb, "[What you know about them]", b.Facts)
	writeSection(&sb, "[What you believe about them]", b.Beliefs)
	writeSection(&sb, "[Private thoughts you never said]", b.Monologues)

	return sb.String()
}

func writeSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(title + "\n")
	for _, it := range items {
		sb.WriteString("- " + it + "\n")
	}
}

// snapshot compresses the numeric state into words. Raw numbers stay
// internal.
func snapshot(s emotion.State) string {
	parts := []string{"mood " + string(s.Mood)}
	parts = append(parts, "energy "+level(s.Energy))
	if s.SocialBattery < 0.3 {
		parts = append(parts, "socially drained")
	}
	if s.Sleepiness > 0.7 {
		parts = append(parts, "sleepy")
	}
	if s.Irritation > 0.5 {
		parts = append(parts, "irritable")
	}
	if s.Curiosity > 0.7 {
		parts = append(parts, "curious")
	}
	return strings.Join(parts, ", ")
}

func level(v float64) string {
	switch {
	case v < 0.34:
		return "low"
	case v < 0.67:
		return "moderate"
	default:
		return "high"
	}
}

// gapLabel maps the interaction gap to a loneliness label. Higher
// attachment halves the thresholds.
func gapLabel(gap time.Duration, attachment float64) string {
	mild, moderate, high := gapMild, gapModerate, gapHigh
	if attachment >= highAttachment {
		mild, moderate, high = mild/2, moderate/2, high/2
	}
	switch {
	case gap >= high:
		return "it has been a very long time since you last spoke; high loneliness"
	case gap >= moderate:
		return "it has been days since you last spoke; moderate loneliness"
	case gap >= mild:
		return "it has been a while since you last spoke; mild loneliness"
	default:
		return ""
	}
}

// describePattern renders a trace pattern key as plain language, without
// exposing its confidence score.
func describePattern(pattern string) string {
	parts := strings.SplitN(pattern, ":", 2)
	if len(parts) != 2 {
		return pattern
	}
	intentPart := strings.ReplaceAll(parts[0], "_", " ")
	return fmt.Sprintf("they tend toward %s when feeling %s", intentPart, parts[1])
}
