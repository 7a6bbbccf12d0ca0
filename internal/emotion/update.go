package emotion

import (
	"strings"
	"time"

	"github.com/SignHolo/companion/internal/intent"
)

// The companion keeps its own diurnal rhythm in a fixed-offset zone so that
// day/night behavior is stable regardless of server locale.
var homeZone = time.FixedZone("companion-home", 9*3600)

const (
	nightStartHour = 22
	nightEndHour   = 7

	sleepDriftNight = 0.15
	sleepDriftDay   = 0.20
	sleepThreshold  = 0.8

	batteryDrainBase     = 0.05
	batteryDrainExertion = 0.10
	batteryDrainSleepy   = 0.10 // extra drain on top of baseline when pushed past sleepiness

	irritationSleepy = 0.15
	irritationHigh   = 0.6 // above this, attachment gains are blocked

	curiosityGain  = 0.10
	curiosityFade  = 0.02
)

// energyDeltas maps intent to the baseline energy cost or lift of a turn.
var energyDeltas = map[intent.Primary]float64{
	intent.CasualChat:       +0.05,
	intent.EmotionalVenting: -0.15,
	intent.SupportSeeking:   -0.10,
	intent.Reflective:       +0.02,
	intent.Analytical:       0,
	intent.TaskPlanning:     -0.05,
}

// attachmentDeltas maps the social dynamic to attachment movement.
var attachmentDeltas = map[intent.Dynamic]float64{
	intent.DynamicIntimate:  +0.08,
	intent.DynamicDependent: +0.06,
	intent.DynamicFriendly:  +0.02,
	intent.DynamicPlayful:   +0.02,
	intent.DynamicDistant:   -0.08,
}

// Apply runs the event-driven phase of the two-phase update: the caller is
// expected to have run Decay first. It returns the post-turn state with
// LastUpdated set to now.
func Apply(s State, label intent.Label, traits []string, now time.Time) State {
	night := isNight(now)

	if night {
		s.Sleepiness = approach(s.Sleepiness, 1.0, sleepDriftNight)
	} else {
		s.Sleepiness = approach(s.Sleepiness, 0.0, sleepDriftDay)
	}

	drain := batteryDrainBase
	if label.HighExertion() {
		drain = batteryDrainExertion
	}
	if s.Sleepiness > sleepThreshold {
		// Being talked at past bedtime wears thin.
		s.Irritation += irritationSleepy
		drain += batteryDrainSleepy
	}
	s.SocialBattery -= drain

	if label.ReflectiveKind() {
		s.Curiosity += curiosityGain
	} else {
		s.Curiosity -= curiosityFade
	}

	sens := sensitivity(traits)

	energyDelta := energyDeltas[label.Primary] * sens
	energyDelta *= 1 + s.Volatility*0.5
	s.Energy += energyDelta

	attachDelta := attachmentDeltas[label.Dynamic] * sens
	if attachDelta > 0 && s.Irritation > irritationHigh {
		attachDelta = 0
	}
	s.Attachment += attachDelta

	s.Mood = nextMood(s.Mood, label)

	s.Clamp()
	s.LastUpdated = now
	return s
}

// nextMood applies the fixed intent-to-mood transition table.
func nextMood(cur Mood, label intent.Label) Mood {
	switch label.Primary {
	case intent.EmotionalVenting:
		return MoodLow
	case intent.SupportSeeking:
		// Being leaned on is meaningful but never uplifting.
		if cur == MoodPositive {
			return MoodNeutral
		}
		return cur
	case intent.CasualChat:
		if label.Tone == intent.ToneHappy || label.Tone == intent.ToneExcited {
			return MoodPositive
		}
		return cur
	default:
		return cur
	}
}

// Traits that raise or lower emotional sensitivity. Matching is
// substring-based so profile phrasing like "deeply empathetic" still lands.
var (
	openTraits  = []string{"sensitive", "empathetic", "open", "affectionate", "warm"}
	stoicTraits = []string{"stoic", "reserved", "detached", "analytical"}
)

// sensitivity derives the personality multiplier applied to energy and
// attachment deltas, clamped to [0.5, 2.0].
func sensitivity(traits []string) float64 {
	m := 1.0
	for _, t := range traits {
		lower := strings.ToLower(t)
		for _, o := range openTraits {
			if strings.Contains(lower, o) {
				m += 0.25
			}
		}
		for _, st := range stoicTraits {
			if strings.Contains(lower, st) {
				m -= 0.25
			}
		}
	}
	if m < 0.5 {
		m = 0.5
	}
	if m > 2.0 {
		m = 2.0
	}
	return m
}

func isNight(now time.Time) bool {
	h := now.In(homeZone).Hour()
	return h >= nightStartHour || h < nightEndHour
}
