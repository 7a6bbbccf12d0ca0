package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/SignHolo/companion/internal/provider"
)

const extractionSystem = `You distill one emotionally significant conversation into a memory.
Return a JSON object with exactly these fields:
"narrative": one or two sentences in first person, as the companion remembering the moment
"emotion": a single word for the feeling the moment carries
"facts": an array of {"key": "...", "value": "..."} entries for any concrete facts the user shared, or []
"observations": an array of short third-person statements about who the user is, only if the conversation revealed one, or []`

// extracted is the model's distillation of a significant session.
type extracted struct {
	Narrative string `json:"narrative"`
	Emotion   string `json:"emotion"`
	Facts     []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"facts"`
	Observations []string `json:"observations"`
}

// extractMemory asks the model to write the episodic narrative and pull
// out facts. A failure returns ok=false; the caller falls back to the
// templated session summary so promotion never depends on the model.
func (o *Orchestrator) extractMemory(ctx context.Context, transcript string) (extracted, bool) {
	resp, err := o.generator.Generate(ctx, &provider.GenerateRequest{
		System:    extractionSystem,
		Prompt:    transcript,
		MaxTokens: 512,
		JSON:      true,
	})
	if err != nil {
		return extracted{}, false
	}

	raw := strings.TrimSpace(resp.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var ex extracted
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &ex); err != nil {
		return extracted{}, false
	}
	if ex.Narrative == "" {
		return extracted{}, false
	}
	return ex, true
}

// Teach prefixes that route an utterance straight into the identity path
// instead of the normal turn pipeline.
var teachPrefixes = []string{
	"remember that you ",
	"remember: you ",
	"you should know that you ",
	"i want you to believe that you ",
}

// teachBelief checks for an explicit identity-teaching utterance and
// returns the taught statement. These bypass classification entirely.
func teachBelief(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	lowered := strings.ToLower(trimmed)
	for _, prefix := range teachPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			statement := strings.TrimSpace(trimmed[len(prefix):])
			statement = strings.TrimRight(statement, ".!")
			if statement == "" {
				return "", false
			}
			return "you " + statement, true
		}
	}
	return "", false
}
