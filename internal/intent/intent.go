package intent

// Primary is the main conversational intent of an utterance.
type Primary string

const (
	CasualChat       Primary = "casual_chat"
	EmotionalVenting Primary = "emotional_venting"
	SupportSeeking   Primary = "support_seeking"
	Reflective       Primary = "reflective"
	Analytical       Primary = "analytical"
	TaskPlanning     Primary = "task_planning"
)

// Tone is the emotional coloring detected on the utterance.
type Tone string

const (
	ToneNeutral    Tone = "neutral"
	ToneHappy      Tone = "happy"
	ToneSad        Tone = "sad"
	ToneAnxious    Tone = "anxious"
	ToneFrustrated Tone = "frustrated"
	ToneExcited    Tone = "excited"
	ToneTired      Tone = "tired"
)

// Dynamic is the social stance the user takes toward the companion.
type Dynamic string

const (
	DynamicFriendly  Dynamic = "friendly"
	DynamicIntimate  Dynamic = "intimate"
	DynamicDependent Dynamic = "dependent"
	DynamicDistant   Dynamic = "distant"
	DynamicPlayful   Dynamic = "playful"
)

// Source records which path produced a label.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Label is the three-axis classification of a single utterance.
type Label struct {
	Primary    Primary `json:"primary"`
	Tone       Tone    `json:"emotion"`
	Dynamic    Dynamic `json:"dynamic"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// Casual reports whether the label carries no conversational weight.
func (l Label) Casual() bool { return l.Primary == CasualChat }

// HighExertion reports whether responding to this intent drains the
// companion faster than baseline.
func (l Label) HighExertion() bool {
	return l.Primary == EmotionalVenting || l.Primary == SupportSeeking
}

// Reflective reports whether the intent is a thinking-out-loud category.
func (l Label) ReflectiveKind() bool {
	return l.Primary == Reflective || l.Primary == Analytical
}

// validPrimaries guards model output parsing.
var validPrimaries = map[Primary]bool{
	CasualChat: true, EmotionalVenting: true, SupportSeeking: true,
	Reflective: true, Analytical: true, TaskPlanning: true,
}
