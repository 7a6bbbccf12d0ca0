package provider

import (
	"context"
	"errors"
	"time"
)

// Provider is a text-generation backend.
type Provider interface {
	ID() string
	Name() string
	Capabilities() Capabilities
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	HealthCheck(ctx context.Context) error
}

// Capabilities declares what a backend natively supports. Callers consult
// these flags instead of switching on model names: when SystemPrompt is
// false the system text is folded into the prompt body, and when JSONMode
// is false the JSON requirement is stated in the prompt instead.
type Capabilities struct {
	SystemPrompt bool `json:"system_prompt"`
	JSONMode     bool `json:"json_mode"`
}

// GenerateRequest asks a provider for one completion.
type GenerateRequest struct {
	Model       string  `json:"model"`
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	JSON        bool    `json:"json,omitempty"`
}

// GenerateResponse is one completion from a provider.
type GenerateResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Config holds configuration for a provider instance.
type Config struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"api_key"`
	Model    string        `json:"model"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// ErrNoCredentials indicates a provider was configured without an API key.
// Surfaced at startup, before any turn runs.
var ErrNoCredentials = errors.New("provider: missing API key")

// ErrEmptyOutput indicates the provider returned a response with no text.
var ErrEmptyOutput = errors.New("provider: empty output")

// foldPrompt rewrites a request for a backend's actual capabilities:
// unsupported system prompts move into the prompt body, and an explicit
// JSON instruction is appended when native JSON mode is unavailable.
func foldPrompt(req *GenerateRequest, caps Capabilities) (system, prompt string) {
	system = req.System
	prompt = req.Prompt
	if !caps.SystemPrompt && system != "" {
		prompt = system + "\n\n" + prompt
		system = ""
	}
	if req.JSON && !caps.JSONMode {
		prompt += "\n\nRespond with a single JSON object and nothing else."
	}
	return system, prompt
}
