// Package reflection holds the companion's self-facing subsystems: the
// per-turn self-state read-back and the private monologue generator.
package reflection

import (
	"encoding/json"
	"strings"

	"github.com/SignHolo/companion/internal/store"
)

const (
	selfStateOpen  = "<self_state>"
	selfStateClose = "</self_state>"
)

// ParseSelfState splits a model reply into the visible text and the
// trailing self-state block, if one was emitted. A malformed block is
// stripped and discarded rather than shown to the user.
func ParseSelfState(reply string) (string, *store.SelfState) {
	start := strings.LastIndex(reply, selfStateOpen)
	if start < 0 {
		return strings.TrimSpace(reply), nil
	}

	rest := reply[start+len(selfStateOpen):]
	end := strings.Index(rest, selfStateClose)

	visible := strings.TrimSpace(reply[:start])
	if end < 0 {
		return visible, nil
	}

	// Anything after the closing tag is model noise; drop it.
	payload := strings.TrimSpace(rest[:end])

	var raw struct {
		CurrentState string  `json:"current_state"`
		Intensity    float64 `json:"intensity"`
		Shift        string  `json:"shift"`
		Notable      string  `json:"notable"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return visible, nil
	}
	if raw.CurrentState == "" {
		return visible, nil
	}
	if raw.Intensity < 0 {
		raw.Intensity = 0
	}
	if raw.Intensity > 1 {
		raw.Intensity = 1
	}

	return visible, &store.SelfState{
		CurrentState: raw.CurrentState,
		Intensity:    raw.Intensity,
		Shift:        raw.Shift,
		Notable:      raw.Notable,
	}
}

// SelfStateInstruction is appended to the generation system prompt so the
// model closes every reply with its inner-state block.
const SelfStateInstruction = `After your reply, on a new line, append exactly one block of the form
<self_state>{"current_state": "...", "intensity": 0.0, "shift": "...", "notable": "..."}</self_state>
describing how you actually feel right now. Keep intensity between 0 and 1. The block is never shown to the user.`
