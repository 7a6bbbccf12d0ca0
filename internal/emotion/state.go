package emotion

import "time"

// Mood is the coarse emotional register of the companion.
type Mood string

const (
	MoodLow      Mood = "low"
	MoodNeutral  Mood = "neutral"
	MoodPositive Mood = "positive"
)

// State is the companion's bounded emotional vector. Every numeric field
// lives in [0,1]; mutations clamp, never wrap.
type State struct {
	Mood          Mood      `json:"mood"`
	Energy        float64   `json:"energy"`
	Attachment    float64   `json:"attachment"`
	SocialBattery float64   `json:"social_battery"`
	Sleepiness    float64   `json:"sleepiness"`
	Irritation    float64   `json:"irritation"`
	Volatility    float64   `json:"volatility"`
	Curiosity     float64   `json:"curiosity"`
	LastUpdated   time.Time `json:"last_updated"`
}

// DefaultState returns a freshly initialized companion state.
func DefaultState(now time.Time) State {
	return State{
		Mood:          MoodNeutral,
		Energy:        0.7,
		Attachment:    0.5,
		SocialBattery: 1.0,
		Sleepiness:    0.2,
		Irritation:    0.0,
		Volatility:    0.3,
		Curiosity:     0.5,
		LastUpdated:   now,
	}
}

// Clamp forces every bounded field back into [0,1].
func (s *State) Clamp() {
	s.Energy = clamp01(s.Energy)
	s.Attachment = clamp01(s.Attachment)
	s.SocialBattery = clamp01(s.SocialBattery)
	s.Sleepiness = clamp01(s.Sleepiness)
	s.Irritation = clamp01(s.Irritation)
	s.Volatility = clamp01(s.Volatility)
	s.Curiosity = clamp01(s.Curiosity)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// approach moves v linearly toward target by at most step, without overshoot.
func approach(v, target, step float64) float64 {
	if step <= 0 {
		return v
	}
	if v < target {
		v += step
		if v > target {
			v = target
		}
		return v
	}
	v -= step
	if v < target {
		v = target
	}
	return v
}
