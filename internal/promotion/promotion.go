// Package promotion decides, once per turn, whether the current session
// warrants a durable long-term memory. Promotions are rare markers, not
// logs: most turns fire nothing.
package promotion

import (
	"fmt"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/intent"
	"github.com/SignHolo/companion/internal/session"
)

const (
	// episodicThreshold is the significance a session must reach before a
	// moment is worth keeping forever.
	episodicThreshold = 0.7

	traceSeedConfidence = 0.3
	traceIncrement      = 0.1

	// PostPromotionSignificance is the level a session falls back to once a
	// moment has been captured. Episodic memories mark peaks; the next one
	// needs fresh buildup.
	PostPromotionSignificance = 0.3
)

// episodicMoods are the dominant emotions that qualify a moment for
// episodic promotion. Positive moments qualify too; flat neutral does not.
var episodicMoods = map[emotion.Mood]bool{
	emotion.MoodLow:      true,
	emotion.MoodPositive: true,
}

// traceIntents are the dominant intents that can evidence a recurring
// emotional pattern.
var traceIntents = map[intent.Primary]bool{
	intent.SupportSeeking:   true,
	intent.EmotionalVenting: true,
}

// EpisodicCandidate describes a moment to persist as an episodic memory.
type EpisodicCandidate struct {
	Summary    string
	Emotion    emotion.Mood
	Importance float64
}

// TraceEvidence names the recurring pattern this turn evidenced.
type TraceEvidence struct {
	Pattern string
}

// Result lists the promotions a turn fired. Both rules are independent and
// may fire together; the zero Result (nothing fired) is the common case.
type Result struct {
	Episodic *EpisodicCandidate
	Trace    *TraceEvidence
}

// Evaluate runs the promotion rules against the session memory.
func Evaluate(mem session.Memory) Result {
	var res Result

	if mem.Significance >= episodicThreshold && episodicMoods[mem.DominantEmotion] {
		res.Episodic = &EpisodicCandidate{
			Summary:    mem.Summary,
			Emotion:    mem.DominantEmotion,
			Importance: mem.Significance,
		}
	}

	if mem.Unresolved && mem.DominantEmotion == emotion.MoodLow && traceIntents[mem.DominantIntent] {
		res.Trace = &TraceEvidence{
			Pattern: PatternKey(mem.DominantIntent, mem.DominantEmotion),
		}
	}

	return res
}

// PatternKey builds the unique key identifying a recurring pattern.
func PatternKey(primary intent.Primary, mood emotion.Mood) string {
	return fmt.Sprintf("%s:%s", primary, mood)
}

// Trace is the evolving confidence record for one pattern.
type Trace struct {
	Pattern       string
	Confidence    float64
	EvidenceCount int
}

// ReinforceTrace applies one piece of evidence: a new pattern seeds at low
// confidence, repeated evidence adds a fixed increment up to 1.0. The
// evidence count always increments.
func ReinforceTrace(existing *Trace, pattern string) Trace {
	if existing == nil {
		return Trace{Pattern: pattern, Confidence: traceSeedConfidence, EvidenceCount: 1}
	}
	next := *existing
	next.Confidence += traceIncrement
	if next.Confidence > 1.0 {
		next.Confidence = 1.0
	}
	next.EvidenceCount++
	return next
}
