package store

import "time"

// DecayRate classes control how fast an episodic memory's retrieval
// relevance fades.
const (
	DecaySlow   = "slow"
	DecayNormal = "normal"
	DecayFast   = "fast"
)

// Emotional weight classes for episodic memories.
const (
	WeightLow    = "low"
	WeightMedium = "medium"
	WeightHigh   = "high"
)

// EpisodicMemory is an immutable record of one significant moment. Only
// the embedding may be back-filled after creation.
type EpisodicMemory struct {
	ID              string    `json:"id"`
	Summary         string    `json:"summary"`
	Narrative       string    `json:"narrative,omitempty"`
	Emotion         string    `json:"emotion"`
	Importance      float64   `json:"importance"`
	EmotionalWeight string    `json:"emotional_weight,omitempty"`
	DecayRate       string    `json:"decay_rate,omitempty"`
	HasEmbedding    bool      `json:"has_embedding"`
	CreatedAt       time.Time `json:"created_at"`
}

// EmotionalTrace is a recurring pattern with confidence that strengthens
// on repeated evidence. Pattern is unique.
type EmotionalTrace struct {
	ID            string    `json:"id"`
	Pattern       string    `json:"pattern"`
	Confidence    float64   `json:"confidence"`
	EvidenceCount int       `json:"evidence_count"`
	LastUpdated   time.Time `json:"last_updated"`
}

// SemanticMemory is a keyed fact about the user; upsert replaces the value.
type SemanticMemory struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdentityMemory is a durable belief about the user; upsert merges
// confidence.
type IdentityMemory struct {
	ID         string    `json:"id"`
	Statement  string    `json:"statement"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SelfBelief is a statement the companion holds about its own nature,
// taught by the user through the identity path.
type SelfBelief struct {
	ID         string    `json:"id"`
	Statement  string    `json:"statement"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// SelfState is the companion's declared inner-state read-back for one turn.
type SelfState struct {
	ID           string    `json:"id"`
	CurrentState string    `json:"current_state"`
	Intensity    float64   `json:"intensity"`
	Shift        string    `json:"shift,omitempty"`
	Notable      string    `json:"notable,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Monologue is a private reflection generated outside the turn path. The
// surfaced flag flips exactly once, when a later turn consumes it.
type Monologue struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Tone      string    `json:"tone"`
	Surfaced  bool      `json:"surfaced"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one transcript entry in the append-only chat log.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
