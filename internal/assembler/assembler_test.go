package assembler

import (
	"strings"
	"testing"
	"time"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/session"
	"github.com/SignHolo/companion/internal/store"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestDecayRateOrderingAtEqualImportance(t *testing.T) {
	// All ten days old, identical importance: beyond the normal window the
	// slower-decaying memory must rank higher.
	age := 10 * 24 * time.Hour
	items := []store.EpisodicMemory{
		{ID: "fast", Summary: "fast one", Importance: 0.5, DecayRate: store.DecayFast, CreatedAt: now.Add(-age)},
		{ID: "slow", Summary: "slow one", Importance: 0.5, DecayRate: store.DecaySlow, CreatedAt: now.Add(-age)},
		{ID: "normal", Summary: "normal one", Importance: 0.5, DecayRate: store.DecayNormal, CreatedAt: now.Add(-age)},
	}

	ranked := rankEpisodic(items, now, nil)
	if len(ranked) != 3 {
		t.Fatalf("got %d ranked items", len(ranked))
	}
	if ranked[0].ID != "slow" {
		t.Errorf("top ranked = %s, want slow", ranked[0].ID)
	}
	// Past both the normal and fast windows the two collapse to recency 0
	// and tie on importance; stable sort keeps input order.
	if ranked[1].ID != "fast" && ranked[1].ID != "normal" {
		t.Errorf("second ranked = %s", ranked[1].ID)
	}
}

func TestSimilarityReblending(t *testing.T) {
	items := []store.EpisodicMemory{
		{ID: "recent", Summary: "recent but off-topic", Importance: 0.5, CreatedAt: now.Add(-time.Hour)},
		{ID: "older", Summary: "older but on-topic", Importance: 0.5, CreatedAt: now.Add(-6 * 24 * time.Hour)},
	}
	sim := map[string]float64{"recent": 0.0, "older": 1.0}

	ranked := rankEpisodic(items, now, sim)
	if ranked[0].ID != "older" {
		t.Errorf("similarity blend should promote on-topic memory, got %s first", ranked[0].ID)
	}
}

func TestTopThreeEpisodic(t *testing.T) {
	var items []store.EpisodicMemory
	for i := 0; i < 6; i++ {
		items = append(items, store.EpisodicMemory{
			ID: string(rune('a' + i)), Summary: "m", Importance: float64(i) / 10, CreatedAt: now.Add(-time.Hour),
		})
	}
	if got := rankEpisodic(items, now, nil); len(got) != 3 {
		t.Errorf("got %d items, want 3", len(got))
	}
}

func TestWeightBonusBreaksTies(t *testing.T) {
	items := []store.EpisodicMemory{
		{ID: "plain", Importance: 0.5, CreatedAt: now.Add(-time.Hour)},
		{ID: "heavy", Importance: 0.5, EmotionalWeight: store.WeightHigh, CreatedAt: now.Add(-time.Hour)},
	}
	if got := rankEpisodic(items, now, nil); got[0].ID != "heavy" {
		t.Errorf("emotional weight should break the tie, got %s", got[0].ID)
	}
}

func TestFactAndBeliefTruncation(t *testing.T) {
	var facts []store.SemanticMemory
	for i := 0; i < 20; i++ {
		facts = append(facts, store.SemanticMemory{
			Key: "k" + string(rune('a'+i)), Value: "v",
			UpdatedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	kept := topFacts(facts)
	if len(kept) != maxFacts {
		t.Fatalf("got %d facts, want %d", len(kept), maxFacts)
	}
	if kept[0].Key != "ka" {
		t.Errorf("most recent fact should rank first, got %s", kept[0].Key)
	}

	var beliefs []store.IdentityMemory
	for i := 0; i < 12; i++ {
		beliefs = append(beliefs, store.IdentityMemory{
			Statement:  "b" + string(rune('a'+i)),
			Confidence: float64(i) / 12,
		})
	}
	keptB := topBeliefs(beliefs)
	if len(keptB) != maxBeliefs {
		t.Fatalf("got %d beliefs, want %d", len(keptB), maxBeliefs)
	}
	if keptB[0].Statement != "bl" {
		t.Errorf("highest confidence belief should rank first, got %s", keptB[0].Statement)
	}
}

func TestGapLabelAttachmentScaling(t *testing.T) {
	cases := []struct {
		gap        time.Duration
		attachment float64
		wantSubstr string
	}{
		{2 * time.Hour, 0.5, ""},
		{30 * time.Hour, 0.5, "mild"},
		{30 * time.Hour, 0.9, "mild"},
		{13 * time.Hour, 0.9, "mild"}, // halved threshold: 12h counts
		{13 * time.Hour, 0.5, ""},
		{100 * time.Hour, 0.5, "moderate"},
		{100 * time.Hour, 0.9, "high"}, // halved: 84h already high
		{200 * time.Hour, 0.5, "high"},
	}
	for _, tc := range cases {
		got := gapLabel(tc.gap, tc.attachment)
		if tc.wantSubstr == "" {
			if got != "" {
				t.Errorf("gap %v attachment %v: got %q, want empty", tc.gap, tc.attachment, got)
			}
			continue
		}
		if !strings.Contains(got, tc.wantSubstr) {
			t.Errorf("gap %v attachment %v: got %q, want %q", tc.gap, tc.attachment, got, tc.wantSubstr)
		}
	}
}

func TestAssembleBundleShape(t *testing.T) {
	state := emotion.DefaultState(now)
	state.Mood = emotion.MoodLow

	in := Input{
		State: state,
		Session: session.Memory{
			Summary:    "The user has been venting.",
			Unresolved: true,
		},
		Candidates: Candidates{
			Episodic: []store.EpisodicMemory{
				{ID: "1", Summary: "short summary", Narrative: "I remember the night they couldn't sleep.", Importance: 0.9, CreatedAt: now.Add(-time.Hour)},
			},
			Traces: []store.EmotionalTrace{
				{Pattern: "emotional_venting:low", Confidence: 0.6},
				{Pattern: "support_seeking:low", Confidence: 0.4},
				{Pattern: "task_planning:neutral", Confidence: 0.2},
			},
			Semantic: []store.SemanticMemory{{Key: "sister", Value: "named Ana"}},
			Identity: []store.IdentityMemory{{Statement: "they are hard on themselves", Confidence: 0.8}},
		},
		Gap: 30 * time.Hour,
		Now: now,
	}

	b := Assemble(in)

	if len(b.Moments) != 1 || b.Moments[0] != "I remember the night they couldn't sleep." {
		t.Errorf("narrative should be preferred over summary: %v", b.Moments)
	}
	if len(b.Patterns) != 2 {
		t.Errorf("got %d patterns, want top 2", len(b.Patterns))
	}
	if len(b.Facts) != 1 || len(b.Beliefs) != 1 {
		t.Errorf("facts/beliefs missing from bundle: %v %v", b.Facts, b.Beliefs)
	}
	if !b.Unresolved {
		t.Error("unresolved flag lost")
	}

	rendered := b.Render()
	if strings.Contains(rendered, "0.6") || strings.Contains(rendered, "0.8") {
		t.Errorf("rendered bundle leaks internal scores:\n%s", rendered)
	}
	if !strings.Contains(rendered, "sister: named Ana") {
		t.Errorf("fact missing from render:\n%s", rendered)
	}
	if !strings.Contains(rendered, "mild") {
		t.Errorf("gap label missing from render:\n%s", rendered)
	}
}
