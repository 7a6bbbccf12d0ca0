package assembler

import (
	"sort"
	"time"

	"github.com/SignHolo/companion/internal/store"
)

// Recency windows per decay class: how long a memory stays retrievable at
// full strength before falling off linearly.
var decayWindows = map[string]time.Duration{
	store.DecaySlow:   30 * 24 * time.Hour,
	store.DecayNormal: 7 * 24 * time.Hour,
	store.DecayFast:   2 * 24 * time.Hour,
}

var weightBonus = map[string]float64{
	store.WeightHigh:   0.3,
	store.WeightMedium: 0.15,
	store.WeightLow:    0,
}

// Blend weights when an input-similarity score is available.
const (
	blendBase       = 0.6
	blendSimilarity = 0.4
)

// baseScore is recency + importance + emotional-weight bonus.
func baseScore(m store.EpisodicMemory, now time.Time) float64 {
	window, ok := decayWindows[m.DecayRate]
	if !ok {
		window = decayWindows[store.DecayNormal]
	}

	age := now.Sub(m.CreatedAt)
	recency := 1 - float64(age)/float64(window)
	if recency < 0 {
		recency = 0
	}
	if recency > 1 {
		recency = 1
	}

	return recency + m.Importance + weightBonus[m.EmotionalWeight]
}

// rankEpisodic scores candidates and returns the top few. When a
// similarity score exists for a memory, the base score is re-blended
// 60/40 with it.
func rankEpisodic(items []store.EpisodicMemory, now time.Time, similarity map[string]float64) []store.EpisodicMemory {
	type scored struct {
		mem   store.EpisodicMemory
		score float64
	}

	ranked := make([]scored, 0, len(items))
	for _, m := range items {
		s := baseScore(m, now)
		if sim, ok := similarity[m.ID]; ok {
			s = blendBase*s + blendSimilarity*sim
		}
		ranked = append(ranked, scored{mem: m, score: s})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	n := maxEpisodic
	if len(ranked) < n {
		n = len(ranked)
	}
	out := make([]store.EpisodicMemory, 0, n)
	for _, r := range ranked[:n] {
		out = append(out, r.mem)
	}
	return out
}

// topTraces returns the strongest patterns by confidence.
func topTraces(traces []store.EmotionalTrace) []store.EmotionalTrace {
	sorted := make([]store.EmotionalTrace, len(traces))
	copy(sorted, traces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if len(sorted) > maxTraces {
		sorted = sorted[:maxTraces]
	}
	return sorted
}

// topFacts keeps the most recently touched facts.
func topFacts(facts []store.SemanticMemory) []store.SemanticMemory {
	sorted := make([]store.SemanticMemory, len(facts))
	copy(sorted, facts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	if len(sorted) > maxFacts {
		sorted = sorted[:maxFacts]
	}
	return sorted
}

// topBeliefs keeps the highest-confidence identity statements.
func topBeliefs(beliefs []store.IdentityMemory) []store.IdentityMemory {
	sorted := make([]store.IdentityMemory, len(beliefs))
	copy(sorted, beliefs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	if len(sorted) > maxBeliefs {
		sorted = sorted[:maxBeliefs]
	}
	return sorted
}
