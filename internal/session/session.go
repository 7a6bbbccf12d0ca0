// Package session tracks the working memory of the current conversation:
// a single evolving record of its emotional and intent trajectory.
package session

import (
	"fmt"
	"time"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/intent"
)

// Memory summarizes the running conversation. It is reset after a long
// idle gap; UpdatedAt records the last turn that touched it.
type Memory struct {
	Summary         string         `json:"summary"`
	DominantIntent  intent.Primary `json:"dominant_intent,omitempty"`
	DominantEmotion emotion.Mood   `json:"dominant_emotion"`
	Unresolved      bool           `json:"unresolved"`
	Significance    float64        `json:"significance"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// New returns an empty session memory.
func New() Memory {
	return Memory{DominantEmotion: emotion.MoodNeutral}
}

// significanceDeltas weights how much each intent moves the session's
// significance. Casual chatter contributes nothing.
var significanceDeltas = map[intent.Primary]float64{
	intent.EmotionalVenting: 0.20,
	intent.SupportSeeking:   0.15,
	intent.Reflective:       0.10,
	intent.Analytical:       0.06,
	intent.TaskPlanning:     0.04,
	intent.CasualChat:       0,
}

// lowMoodBonus is added on top of the intent delta whenever mood is low.
const lowMoodBonus = 0.05

// emotionallyLoaded marks intents that can leave the session unresolved.
var emotionallyLoaded = map[intent.Primary]bool{
	intent.EmotionalVenting: true,
	intent.SupportSeeking:   true,
}

// Update applies the per-turn bookkeeping rules and returns the evolved
// session memory. All rules are deterministic string and number rules;
// nothing here calls a model.
func Update(prev Memory, label intent.Label, state emotion.State, input string) Memory {
	next := prev

	// Dominant intent is sticky: casual chatter may seed an empty value but
	// never overwrites a meaningful one.
	if next.DominantIntent == "" || !label.Casual() {
		next.DominantIntent = label.Primary
	}

	next.DominantEmotion = state.Mood

	if emotionallyLoaded[label.Primary] && state.Mood == emotion.MoodLow {
		next.Unresolved = true
	} else if next.Unresolved && state.Mood != emotion.MoodLow && !emotionallyLoaded[label.Primary] {
		// Resolution requires the mood to have stabilized under a calmer
		// intent, not merely a single non-low reading mid-vent.
		next.Unresolved = false
	}

	delta := significanceDeltas[label.Primary]
	if state.Mood == emotion.MoodLow {
		delta += lowMoodBonus
	}
	next.Significance += delta
	if next.Significance > 1 {
		next.Significance = 1
	}
	if next.Significance < 0 {
		next.Significance = 0
	}

	next.Summary = summarize(next.DominantIntent, state.Mood, next.Unresolved)
	return next
}

// summarize renders the short templated session summary.
func summarize(primary intent.Primary, mood emotion.Mood, unresolved bool) string {
	topic := "light conversation"
	switch primary {
	case intent.EmotionalVenting:
		topic = "venting about something weighing on them"
	case intent.SupportSeeking:
		topic = "looking for support"
	case intent.Reflective:
		topic = "reflecting on their life"
	case intent.Analytical:
		topic = "working through a question"
	case intent.TaskPlanning:
		topic = "planning something together"
	}
	s := fmt.Sprintf("The user has been %s; the mood of the conversation is %s.", topic, mood)
	if unresolved {
		s += " Something still feels unresolved."
	}
	return s
}
