package embedding

import "context"

// LocalProvider embeds through an Ollama-compatible endpoint, which takes
// one prompt per request; batches loop.
type LocalProvider struct {
	endpoint string
	model    string
	dimTracker
}

func NewLocalProvider(cfg Config) *LocalProvider {
	return &LocalProvider{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		dimTracker: dimTracker{configured: cfg.Dimension},
	}
}

type localRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type localResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	url := p.endpoint + "/api/embeddings"
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		var result localResponse
		if err := postJSON(ctx, url, "", localRequest{Model: p.model, Prompt: text}, &result); err != nil {
			return nil, err
		}
		vectors = append(vectors, result.Embedding)
	}
	p.note(vectors)
	return vectors, nil
}
