package session

import (
	"math"
	"strings"
	"testing"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/intent"
)

func stateWithMood(m emotion.Mood) emotion.State {
	var s emotion.State
	s.Mood = m
	return s
}

func TestDominantIntentSticky(t *testing.T) {
	mem := New()

	mem = Update(mem, intent.Label{Primary: intent.CasualChat}, stateWithMood(emotion.MoodNeutral), "hi")
	if mem.DominantIntent != intent.CasualChat {
		t.Fatalf("casual should seed empty dominant intent, got %v", mem.DominantIntent)
	}

	mem = Update(mem, intent.Label{Primary: intent.EmotionalVenting}, stateWithMood(emotion.MoodLow), "ugh")
	if mem.DominantIntent != intent.EmotionalVenting {
		t.Fatalf("non-casual should overwrite, got %v", mem.DominantIntent)
	}

	mem = Update(mem, intent.Label{Primary: intent.CasualChat}, stateWithMood(emotion.MoodNeutral), "anyway")
	if mem.DominantIntent != intent.EmotionalVenting {
		t.Errorf("casual overwrote meaningful intent: %v", mem.DominantIntent)
	}
}

func TestUnresolvedLifecycle(t *testing.T) {
	mem := New()

	mem = Update(mem, intent.Label{Primary: intent.EmotionalVenting}, stateWithMood(emotion.MoodLow), "")
	if !mem.Unresolved {
		t.Fatal("venting at low mood should mark the session unresolved")
	}

	// Still venting, mood briefly neutral: not yet resolved.
	mem = Update(mem, intent.Label{Primary: intent.EmotionalVenting}, stateWithMood(emotion.MoodNeutral), "")
	if !mem.Unresolved {
		t.Fatal("unresolved should persist while the intent stays loaded")
	}

	mem = Update(mem, intent.Label{Primary: intent.CasualChat}, stateWithMood(emotion.MoodNeutral), "")
	if mem.Unresolved {
		t.Fatal("stable mood under a calm intent should resolve the session")
	}
}

func TestSignificanceAccumulation(t *testing.T) {
	mem := New()

	// Venting at low mood: 0.20 + 0.05 per turn.
	for i := 0; i < 3; i++ {
		mem = Update(mem, intent.Label{Primary: intent.EmotionalVenting}, stateWithMood(emotion.MoodLow), "")
	}
	if math.Abs(mem.Significance-0.75) > 1e-9 {
		t.Errorf("significance = %v, want 0.75", mem.Significance)
	}

	// Casual turns add nothing.
	before := mem.Significance
	mem = Update(mem, intent.Label{Primary: intent.CasualChat}, stateWithMood(emotion.MoodNeutral), "")
	if mem.Significance != before {
		t.Errorf("casual turn changed significance: %v -> %v", before, mem.Significance)
	}
}

func TestSignificanceClamped(t *testing.T) {
	mem := New()
	for i := 0; i < 20; i++ {
		mem = Update(mem, intent.Label{Primary: intent.EmotionalVenting}, stateWithMood(emotion.MoodLow), "")
	}
	if mem.Significance != 1.0 {
		t.Errorf("significance = %v, want clamp at 1.0", mem.Significance)
	}
}

func TestSummaryTemplated(t *testing.T) {
	mem := New()
	mem = Update(mem, intent.Label{Primary: intent.SupportSeeking}, stateWithMood(emotion.MoodLow), "")

	if !strings.Contains(mem.Summary, "support") {
		t.Errorf("summary missing intent wording: %q", mem.Summary)
	}
	if !strings.Contains(mem.Summary, "low") {
		t.Errorf("summary missing mood wording: %q", mem.Summary)
	}
	if !strings.Contains(mem.Summary, "unresolved") {
		t.Errorf("summary missing unresolved wording: %q", mem.Summary)
	}
	if mem.DominantEmotion != emotion.MoodLow {
		t.Errorf("dominant emotion = %v", mem.DominantEmotion)
	}
}
