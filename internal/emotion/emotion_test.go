package emotion

import (
	"math"
	"testing"
	"time"

	"github.com/SignHolo/companion/internal/intent"
)

var daytime = time.Date(2025, 6, 10, 14, 0, 0, 0, homeZone)

func allBounded(s State) bool {
	for _, v := range []float64{
		s.Energy, s.Attachment, s.SocialBattery, s.Sleepiness,
		s.Irritation, s.Volatility, s.Curiosity,
	} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

func TestDecayZeroElapsedIsIdempotent(t *testing.T) {
	s := DefaultState(daytime)
	s.Energy = 0.93
	s.Irritation = 0.4

	got := Decay(s, daytime)
	if got != s {
		t.Errorf("decay at zero elapsed mutated state: %+v != %+v", got, s)
	}

	// Under the six-minute floor the decay is skipped entirely.
	got = Decay(s, daytime.Add(5*time.Minute))
	if got != s {
		t.Errorf("decay under 6min mutated state: %+v != %+v", got, s)
	}
}

func TestDecayPullsTowardBaselineWithoutOvershoot(t *testing.T) {
	s := DefaultState(daytime)
	s.Energy = 1.0
	s.Attachment = 0.9

	prevDist := math.Abs(s.Energy - 0.5)
	for _, hours := range []float64{1, 4, 12, 48, 200} {
		got := Decay(s, daytime.Add(time.Duration(hours*float64(time.Hour))))
		dist := math.Abs(got.Energy - 0.5)
		if dist > prevDist {
			t.Errorf("after %.0fh energy moved away from baseline: %.4f", hours, got.Energy)
		}
		if got.Energy < 0.5 {
			t.Errorf("after %.0fh energy overshot baseline: %.4f", hours, got.Energy)
		}
		if got.Attachment < 0.5 {
			t.Errorf("after %.0fh attachment overshot baseline: %.4f", hours, got.Attachment)
		}
		prevDist = dist
	}
}

func TestDecayEnergyClampsAtBaselineAfter36Hours(t *testing.T) {
	s := DefaultState(daytime)
	s.Energy = 1.0

	// 36h * 0.014/h = 0.504 >= the 0.5 distance to baseline.
	got := Decay(s, daytime.Add(36*time.Hour))
	if got.Energy != 0.5 {
		t.Errorf("energy = %v, want exactly 0.5", got.Energy)
	}
}

func TestDecayForcesNeutralMoodAfterLongAbsence(t *testing.T) {
	s := DefaultState(daytime)
	s.Mood = MoodLow

	got := Decay(s, daytime.Add(12*time.Hour))
	if got.Mood != MoodLow {
		t.Errorf("mood flipped too early: %v", got.Mood)
	}

	got = Decay(s, daytime.Add(25*time.Hour))
	if got.Mood != MoodNeutral {
		t.Errorf("mood = %v after 25h, want neutral", got.Mood)
	}
}

func TestDecayRechargesBatteryAndCalmsIrritation(t *testing.T) {
	s := DefaultState(daytime)
	s.SocialBattery = 0.2
	s.Irritation = 0.5

	got := Decay(s, daytime.Add(4*time.Hour))
	if got.SocialBattery <= 0.2 {
		t.Errorf("battery did not recharge: %v", got.SocialBattery)
	}
	if got.Irritation >= 0.5 {
		t.Errorf("irritation did not calm: %v", got.Irritation)
	}
}

func TestApplyMoodTransitions(t *testing.T) {
	cases := []struct {
		name  string
		start Mood
		label intent.Label
		want  Mood
	}{
		{"venting drops mood", MoodPositive, intent.Label{Primary: intent.EmotionalVenting}, MoodLow},
		{"support caps at neutral", MoodPositive, intent.Label{Primary: intent.SupportSeeking}, MoodNeutral},
		{"support keeps low", MoodLow, intent.Label{Primary: intent.SupportSeeking}, MoodLow},
		{"happy casual lifts", MoodNeutral, intent.Label{Primary: intent.CasualChat, Tone: intent.ToneHappy}, MoodPositive},
		{"flat casual keeps", MoodNeutral, intent.Label{Primary: intent.CasualChat, Tone: intent.ToneNeutral}, MoodNeutral},
		{"task keeps", MoodPositive, intent.Label{Primary: intent.TaskPlanning}, MoodPositive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultState(daytime)
			s.Mood = tc.start
			tc.label.Dynamic = intent.DynamicFriendly
			got := Apply(s, tc.label, nil, daytime)
			if got.Mood != tc.want {
				t.Errorf("mood = %v, want %v", got.Mood, tc.want)
			}
		})
	}
}

func TestApplyBlocksAttachmentGainWhenIrritated(t *testing.T) {
	s := DefaultState(daytime)
	s.Irritation = 0.9
	s.Attachment = 0.5

	got := Apply(s, intent.Label{Primary: intent.CasualChat, Dynamic: intent.DynamicIntimate}, nil, daytime)
	if got.Attachment > 0.5 {
		t.Errorf("attachment rose to %v while irritated", got.Attachment)
	}

	// Negative movement is still allowed.
	s.Attachment = 0.5
	got = Apply(s, intent.Label{Primary: intent.CasualChat, Dynamic: intent.DynamicDistant}, nil, daytime)
	if got.Attachment >= 0.5 {
		t.Errorf("distant dynamic did not lower attachment: %v", got.Attachment)
	}
}

func TestApplySleepyInteractionRaisesIrritation(t *testing.T) {
	night := time.Date(2025, 6, 10, 23, 30, 0, 0, homeZone)

	s := DefaultState(daytime)
	s.Sleepiness = 0.95
	s.Irritation = 0
	s.SocialBattery = 1.0

	got := Apply(s, intent.Label{Primary: intent.CasualChat, Dynamic: intent.DynamicFriendly}, nil, night)
	if got.Irritation == 0 {
		t.Error("interacting past sleepiness threshold should raise irritation")
	}
	if got.SocialBattery >= 1.0-batteryDrainBase {
		t.Errorf("sleepy interaction should drain battery faster, got %v", got.SocialBattery)
	}
}

func TestApplyCuriosityByIntent(t *testing.T) {
	s := DefaultState(daytime)
	s.Curiosity = 0.5

	got := Apply(s, intent.Label{Primary: intent.Reflective, Dynamic: intent.DynamicFriendly}, nil, daytime)
	if got.Curiosity <= 0.5 {
		t.Errorf("reflective intent should raise curiosity, got %v", got.Curiosity)
	}

	got = Apply(s, intent.Label{Primary: intent.CasualChat, Dynamic: intent.DynamicFriendly}, nil, daytime)
	if got.Curiosity >= 0.5 {
		t.Errorf("casual intent should slightly fade curiosity, got %v", got.Curiosity)
	}
}

func TestSensitivityClamped(t *testing.T) {
	cases := []struct {
		traits []string
		want   float64
	}{
		{nil, 1.0},
		{[]string{"warm", "empathetic"}, 1.5},
		{[]string{"stoic"}, 0.75},
		{[]string{"warm", "open", "sensitive", "affectionate", "empathetic"}, 2.0},
		{[]string{"stoic", "reserved", "detached"}, 0.5},
	}
	for _, tc := range cases {
		if got := sensitivity(tc.traits); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("sensitivity(%v) = %v, want %v", tc.traits, got, tc.want)
		}
	}
}

func TestBoundsHoldUnderArbitrarySequences(t *testing.T) {
	labels := []intent.Label{
		{Primary: intent.EmotionalVenting, Tone: intent.ToneSad, Dynamic: intent.DynamicDependent},
		{Primary: intent.SupportSeeking, Tone: intent.ToneAnxious, Dynamic: intent.DynamicIntimate},
		{Primary: intent.CasualChat, Tone: intent.ToneHappy, Dynamic: intent.DynamicPlayful},
		{Primary: intent.Analytical, Tone: intent.ToneNeutral, Dynamic: intent.DynamicDistant},
		{Primary: intent.TaskPlanning, Tone: intent.ToneTired, Dynamic: intent.DynamicFriendly},
	}
	gaps := []time.Duration{0, time.Minute, time.Hour, 7 * time.Hour, 30 * time.Hour}
	traits := []string{"deeply empathetic", "warm"}

	s := DefaultState(daytime)
	s.Volatility = 1.0
	now := daytime
	for i := 0; i < 200; i++ {
		now = now.Add(gaps[i%len(gaps)])
		s = Decay(s, now)
		if !allBounded(s) {
			t.Fatalf("bounds violated after decay %d: %+v", i, s)
		}
		s = Apply(s, labels[i%len(labels)], traits, now)
		if !allBounded(s) {
			t.Fatalf("bounds violated after apply %d: %+v", i, s)
		}
	}
}
