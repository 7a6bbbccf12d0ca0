package intent

import "strings"

// fallbackRule maps trigger keywords to a preset label. Rules are checked
// in order; the first keyword hit wins.
type fallbackRule struct {
	keywords []string
	label    Label
}

var fallbackRules = []fallbackRule{
	{
		keywords: []string{"exhausted", "drained", "can't sleep", "cant sleep", "empty", "fed up", "i can't do this", "worn out"},
		label:    Label{Primary: EmotionalVenting, Tone: ToneTired, Dynamic: DynamicDependent, Confidence: 0.8},
	},
	{
		keywords: []string{"i hate", "so angry", "furious", "sick of"},
		label:    Label{Primary: EmotionalVenting, Tone: ToneFrustrated, Dynamic: DynamicFriendly, Confidence: 0.8},
	},
	{
		keywords: []string{"help me", "what should i do", "i need advice", "i need you", "can you help"},
		label:    Label{Primary: SupportSeeking, Tone: ToneAnxious, Dynamic: DynamicDependent, Confidence: 0.75},
	},
	{
		keywords: []string{"i've been thinking", "ive been thinking", "i wonder", "what's the point", "the meaning of"},
		label:    Label{Primary: Reflective, Tone: ToneNeutral, Dynamic: DynamicFriendly, Confidence: 0.7},
	},
	{
		keywords: []string{"why does", "how does", "explain", "what causes"},
		label:    Label{Primary: Analytical, Tone: ToneNeutral, Dynamic: DynamicFriendly, Confidence: 0.7},
	},
	{
		keywords: []string{"remind me", "let's plan", "lets plan", "schedule", "tomorrow we", "todo"},
		label:    Label{Primary: TaskPlanning, Tone: ToneNeutral, Dynamic: DynamicFriendly, Confidence: 0.75},
	},
	{
		keywords: []string{"thank you", "love you", "great news", "so happy", "awesome"},
		label:    Label{Primary: CasualChat, Tone: ToneHappy, Dynamic: DynamicIntimate, Confidence: 0.8},
	},
}

// FallbackClassify applies the deterministic keyword rules. When nothing
// matches it returns the neutral casual label at full confidence.
func FallbackClassify(text string) Label {
	lower := strings.ToLower(text)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				label := rule.label
				label.Source = SourceFallback
				return label
			}
		}
	}
	return Label{
		Primary:    CasualChat,
		Tone:       ToneNeutral,
		Dynamic:    DynamicFriendly,
		Confidence: 1.0,
		Source:     SourceFallback,
	}
}
