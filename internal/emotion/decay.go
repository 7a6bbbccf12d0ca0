package emotion

import "time"

// Decay rates, all per elapsed hour.
const (
	driftRate     = 0.014 // energy and attachment toward their 0.5 baseline
	rechargeRate  = 0.05  // social battery toward 1.0
	calmRate      = 0.03  // irritation toward 0.0
	curiosityRate = 0.01  // curiosity toward its 0.5 baseline

	// minDecayGap avoids precision thrash on rapid back-to-back turns.
	minDecayGap = 6 * time.Minute

	// staleAfter is the absence window beyond which mood settles to neutral.
	staleAfter = 24 * time.Hour
)

// Decay applies time-based drift to a state given the current wall clock.
// It returns a new state; LastUpdated is left untouched so that a
// subsequent event update owns the timestamp.
func Decay(s State, now time.Time) State {
	elapsed := now.Sub(s.LastUpdated)
	if elapsed < minDecayGap {
		return s
	}

	hours := elapsed.Hours()

	s.Energy = approach(s.Energy, 0.5, driftRate*hours)
	s.Attachment = approach(s.Attachment, 0.5, driftRate*hours)
	s.SocialBattery = approach(s.SocialBattery, 1.0, rechargeRate*hours)
	s.Irritation = approach(s.Irritation, 0.0, calmRate*hours)
	s.Curiosity = approach(s.Curiosity, 0.5, curiosityRate*hours)

	if elapsed > staleAfter {
		s.Mood = MoodNeutral
	}

	s.Clamp()
	return s
}
