package intent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/SignHolo/companion/internal/provider"
	"go.uber.org/zap"
)

// Generator is the slice of the provider router the classifier needs.
type Generator interface {
	Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error)
}

// classifyTimeout bounds the model path. A classification that has not
// resolved by then loses the race to the keyword fallback.
const classifyTimeout = 10 * time.Second

const classifySystem = `You label a single user utterance addressed to a close companion.
Return a JSON object with exactly these fields:
"primary": one of casual_chat, emotional_venting, support_seeking, reflective, analytical, task_planning
"emotion": one of neutral, happy, sad, anxious, frustrated, excited, tired
"dynamic": one of friendly, intimate, dependent, distant, playful
"confidence": a number between 0 and 1`

// Classifier labels utterances, preferring a semantic model call and
// falling back to deterministic keyword rules on timeout or bad output.
type Classifier struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// NewClassifier creates a classifier over the given generator.
func NewClassifier(gen Generator, logger *zap.Logger) *Classifier {
	return &Classifier{gen: gen, timeout: classifyTimeout, logger: logger}
}

// Classify labels one utterance. It never returns an error: every failure
// mode resolves to the deterministic fallback.
func (c *Classifier) Classify(ctx context.Context, text string) Label {
	if c.gen == nil {
		return FallbackClassify(text)
	}

	type outcome struct {
		label Label
		ok    bool
	}

	raceCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		resp, err := c.gen.Generate(raceCtx, &provider.GenerateRequest{
			System:    classifySystem,
			Prompt:    text,
			MaxTokens: 256,
			JSON:      true,
		})
		if err != nil {
			ch <- outcome{}
			return
		}
		label, ok := parseLabel(resp.Content)
		ch <- outcome{label: label, ok: ok}
	}()

	select {
	case out := <-ch:
		if out.ok {
			return out.label
		}
		c.logger.Debug("classification unusable, using keyword fallback")
	case <-raceCtx.Done():
		c.logger.Warn("classification timed out, using keyword fallback",
			zap.Duration("timeout", c.timeout))
	}
	return FallbackClassify(text)
}

// parseLabel parses a strict JSON label from model output. Code fences are
// tolerated; anything else malformed rejects the result.
func parseLabel(raw string) (Label, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var label Label
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &label); err != nil {
		return Label{}, false
	}
	if !validPrimaries[label.Primary] {
		return Label{}, false
	}
	if label.Confidence < 0 || label.Confidence > 1 {
		return Label{}, false
	}
	if label.Tone == "" {
		label.Tone = ToneNeutral
	}
	if label.Dynamic == "" {
		label.Dynamic = DynamicFriendly
	}
	label.Source = SourceModel
	return label, true
}
