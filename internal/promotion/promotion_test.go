package promotion

import (
	"math"
	"testing"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/intent"
	"github.com/SignHolo/companion/internal/session"
)

func TestEpisodicFiresOnlyAboveThresholdWithQualifyingMood(t *testing.T) {
	cases := []struct {
		name string
		mem  session.Memory
		want bool
	}{
		{"below threshold", session.Memory{Significance: 0.69, DominantEmotion: emotion.MoodLow}, false},
		{"at threshold, low mood", session.Memory{Significance: 0.7, DominantEmotion: emotion.MoodLow}, true},
		{"at threshold, positive mood", session.Memory{Significance: 0.7, DominantEmotion: emotion.MoodPositive}, true},
		{"at threshold, neutral mood", session.Memory{Significance: 0.9, DominantEmotion: emotion.MoodNeutral}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(tc.mem)
			if (res.Episodic != nil) != tc.want {
				t.Errorf("episodic fired = %v, want %v", res.Episodic != nil, tc.want)
			}
			if res.Episodic != nil && res.Episodic.Importance != tc.mem.Significance {
				t.Errorf("importance = %v, want significance %v", res.Episodic.Importance, tc.mem.Significance)
			}
		})
	}
}

func TestTraceFiresOnUnresolvedLowSupportOrVenting(t *testing.T) {
	mem := session.Memory{
		Unresolved:      true,
		DominantEmotion: emotion.MoodLow,
		DominantIntent:  intent.EmotionalVenting,
	}
	res := Evaluate(mem)
	if res.Trace == nil {
		t.Fatal("trace rule should fire")
	}
	if res.Trace.Pattern != "emotional_venting:low" {
		t.Errorf("pattern = %q", res.Trace.Pattern)
	}

	mem.DominantIntent = intent.Reflective
	if res := Evaluate(mem); res.Trace != nil {
		t.Error("trace fired outside the intent allow-list")
	}

	mem.DominantIntent = intent.SupportSeeking
	mem.Unresolved = false
	if res := Evaluate(mem); res.Trace != nil {
		t.Error("trace fired without unresolved flag")
	}
}

func TestBothRulesCanFireTogether(t *testing.T) {
	mem := session.Memory{
		Significance:    0.8,
		Unresolved:      true,
		DominantEmotion: emotion.MoodLow,
		DominantIntent:  intent.SupportSeeking,
	}
	res := Evaluate(mem)
	if res.Episodic == nil || res.Trace == nil {
		t.Errorf("both rules should fire: episodic=%v trace=%v", res.Episodic != nil, res.Trace != nil)
	}
}

func TestReinforceTrace(t *testing.T) {
	first := ReinforceTrace(nil, "emotional_venting:low")
	if math.Abs(first.Confidence-0.3) > 1e-9 || first.EvidenceCount != 1 {
		t.Fatalf("first evidence: %+v", first)
	}

	second := ReinforceTrace(&first, "emotional_venting:low")
	if math.Abs(second.Confidence-0.4) > 1e-9 || second.EvidenceCount != 2 {
		t.Fatalf("second evidence: %+v", second)
	}

	// Confidence saturates at 1.0 regardless of repetition.
	cur := second
	for i := 0; i < 20; i++ {
		cur = ReinforceTrace(&cur, cur.Pattern)
	}
	if cur.Confidence > 1.0 {
		t.Errorf("confidence exceeded 1.0: %v", cur.Confidence)
	}
	if cur.EvidenceCount != 22 {
		t.Errorf("evidence count = %d, want 22", cur.EvidenceCount)
	}
}

// Three consecutive heavy venting turns at low mood cross the threshold on
// the third turn and no earlier.
func TestVentingSequenceCrossesThresholdOnThirdTurn(t *testing.T) {
	mem := session.New()
	var state emotion.State
	state.Mood = emotion.MoodLow
	label := intent.Label{Primary: intent.EmotionalVenting, Tone: intent.ToneTired}

	for turn := 1; turn <= 3; turn++ {
		mem = session.Update(mem, label, state, "I'm exhausted, empty, can't sleep")
		res := Evaluate(mem)
		fired := res.Episodic != nil
		if turn < 3 && fired {
			t.Errorf("turn %d: episodic fired early (significance %v)", turn, mem.Significance)
		}
		if turn == 3 && !fired {
			t.Errorf("turn 3: episodic did not fire (significance %v)", mem.Significance)
		}
	}
}
