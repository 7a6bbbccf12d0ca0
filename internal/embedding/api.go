package embedding

import (
	"context"
	"fmt"
)

// APIProvider embeds through an OpenAI-compatible /embeddings endpoint.
// All texts go out in one batch.
type APIProvider struct {
	endpoint string
	model    string
	apiKey   string
	dimTracker
}

func NewAPIProvider(cfg Config) *APIProvider {
	return &APIProvider{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		dimTracker: dimTracker{configured: cfg.Dimension},
	}
}

type apiRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type apiResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in order. A response with the
// wrong vector count is an error; silently misaligned vectors would poison
// the index.
func (p *APIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var result apiResponse
	url := p.endpoint + "/embeddings"
	if err := postJSON(ctx, url, p.apiKey, apiRequest{Model: p.model, Input: texts}, &result); err != nil {
		return nil, err
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d inputs", len(result.Data), len(texts))
	}

	vectors := make([][]float32, len(result.Data))
	for i, d := range result.Data {
		vectors[i] = d.Embedding
	}
	p.note(vectors)
	return vectors, nil
}
