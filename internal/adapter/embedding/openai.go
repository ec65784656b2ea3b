package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider embeds through an OpenAI-compatible embeddings API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	dim    int
}

func NewOpenAIProvider(apiKey, baseURL, model string, dim int) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key not configured")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dim,
	}, nil
}

func (p *OpenAIProvider) Name() string   { return "openai:" + p.model }
func (p *OpenAIProvider) Dimension() int { return p.dim }

func (p *OpenAIProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := fitDimension(d.Embedding, p.dim)
		l2Normalize(vec)
		vecs[i] = vec
	}
	return vecs, nil
}
